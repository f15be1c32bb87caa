package notification

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countUnread(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// ============================================
// Center Tests
// ============================================

func TestCenter_AppendNewestFirst(t *testing.T) {
	c := NewCenter(0)

	first := c.Push(SeverityInfo, "one", "first", nil)
	second := c.Push(SeveritySuccess, "two", "second", map[string]string{"orderId": "o1"})

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.JSONEq(t, `{"orderId":"o1"}`, string(list[0].Payload))
	assert.False(t, list[0].CreatedAt.IsZero())
	assert.Equal(t, 2, c.UnreadCount())
}

func TestCenter_MarkReadIdempotent(t *testing.T) {
	c := NewCenter(0)
	n := c.Push(SeverityInfo, "t", "m", nil)

	assert.True(t, c.MarkRead(n.ID))
	assert.False(t, c.MarkRead(n.ID))
	assert.False(t, c.MarkRead("unknown"))
	assert.Equal(t, 0, c.UnreadCount())
}

func TestCenter_RemoveAndClear(t *testing.T) {
	c := NewCenter(0)
	a := c.Push(SeverityInfo, "a", "", nil)
	b := c.Push(SeverityInfo, "b", "", nil)
	c.MarkRead(b.ID)

	assert.True(t, c.Remove(b.ID))
	assert.Equal(t, 1, c.UnreadCount(), "removing a read record keeps the counter")
	assert.True(t, c.Remove(a.ID))
	assert.Equal(t, 0, c.UnreadCount())
	assert.False(t, c.Remove(a.ID))

	c.Push(SeverityInfo, "c", "", nil)
	c.ClearAll()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.UnreadCount())
}

func TestCenter_EvictionAdjustsUnread(t *testing.T) {
	c := NewCenter(3)
	oldest := c.Push(SeverityInfo, "0", "", nil)
	for i := 1; i <= 3; i++ {
		c.Push(SeverityInfo, fmt.Sprint(i), "", nil)
	}

	list := c.List()
	require.Len(t, list, 3)
	for _, n := range list {
		assert.NotEqual(t, oldest.ID, n.ID)
	}
	assert.Equal(t, 3, c.UnreadCount())

	c.MarkAllRead()
	c.Push(SeverityInfo, "4", "", nil)
	assert.Equal(t, 1, c.UnreadCount(), "evicting a read record leaves unread alone")
}

func TestCenter_UnreadMatchesRecordsUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := NewCenter(10)

	for i := 0; i < 2000; i++ {
		list := c.List()
		switch op := rng.Intn(6); {
		case op <= 1 || len(list) == 0:
			c.Push(SeverityInfo, fmt.Sprint(i), "", nil)
		case op == 2:
			c.MarkRead(list[rng.Intn(len(list))].ID)
		case op == 3:
			c.Remove(list[rng.Intn(len(list))].ID)
		case op == 4:
			if rng.Intn(10) == 0 {
				c.MarkAllRead()
			}
		default:
			if rng.Intn(20) == 0 {
				c.ClearAll()
			}
		}

		require.Equal(t, countUnread(c.List()), c.UnreadCount(), "after op %d", i)
		require.LessOrEqual(t, c.Len(), 10)
	}
}

func TestCenter_SubscribeAndRelease(t *testing.T) {
	c := NewCenter(0)
	calls := 0
	sub := c.Subscribe(func() { calls++ })

	c.Push(SeverityInfo, "a", "", nil)
	sub.Close()
	sub.Close()
	c.Push(SeverityInfo, "b", "", nil)

	assert.Equal(t, 1, calls)
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityWarning, ParseSeverity("warning"))
	assert.Equal(t, SeverityInfo, ParseSeverity(""))
	assert.Equal(t, SeverityInfo, ParseSeverity("critical"))
}

// ============================================
// Toaster Tests
// ============================================

func TestToaster_AutoDismiss(t *testing.T) {
	toaster := NewToaster(20*time.Millisecond, 200*time.Millisecond)
	defer toaster.Close()

	toaster.Show(SeverityInfo, "saved", "")
	errToast := toaster.Show(SeverityError, "failed", "")
	require.Len(t, toaster.Active(), 2)

	require.Eventually(t, func() bool {
		return len(toaster.Active()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, errToast.ID, toaster.Active()[0].ID, "error toasts live longer")
}

func TestToaster_DismissAndClose(t *testing.T) {
	toaster := NewToaster(time.Hour, time.Hour)
	a := toaster.Show(SeverityInfo, "a", "")
	toaster.Show(SeverityWarning, "b", "")

	assert.True(t, toaster.Dismiss(a.ID))
	assert.False(t, toaster.Dismiss(a.ID))
	assert.Len(t, toaster.Active(), 1)

	toaster.Close()
	assert.Empty(t, toaster.Active())
	toaster.Show(SeverityInfo, "late", "")
	assert.Empty(t, toaster.Active())
}
