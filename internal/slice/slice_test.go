package slice

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testDetails struct {
	Note  string `json:"note,omitempty"`
	Color string `json:"color,omitempty"`
}

type testItem struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    string      `json:"status"`
	Details   testDetails `json:"details"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (i testItem) GetID() string { return i.ID }

type testFilter struct {
	Status string
	Search string
}

type listCall struct {
	page    int
	filter  testFilter
	release chan struct{}
	result  Page[testItem]
	err     error
}

// fakeFetcher answers list calls only when the test releases them, so
// tests control response ordering.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[int]*listCall
	started   chan int
	items     map[string]testItem
	getErr    error
	createErr error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[int]*listCall),
		started: make(chan int, 16),
		items:   make(map[string]testItem),
	}
}

func (f *fakeFetcher) stage(page int, items []testItem, err error) *listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &listCall{
		page:    page,
		release: make(chan struct{}),
		result:  Page[testItem]{Items: items, Total: 45, Page: page, PageSize: 20},
		err:     err,
	}
	f.pages[page] = c
	return c
}

func (f *fakeFetcher) List(ctx context.Context, filter testFilter, page, pageSize int) (Page[testItem], error) {
	f.mu.Lock()
	c, ok := f.pages[page]
	f.mu.Unlock()
	if !ok {
		return Page[testItem]{Page: page, PageSize: pageSize}, nil
	}
	c.filter = filter
	f.started <- page
	select {
	case <-c.release:
	case <-ctx.Done():
		return Page[testItem]{}, ctx.Err()
	}
	return c.result, c.err
}

func (f *fakeFetcher) Get(_ context.Context, id string) (testItem, error) {
	if f.getErr != nil {
		return testItem{}, f.getErr
	}
	item, ok := f.items[id]
	if !ok {
		return testItem{}, errors.New("not found")
	}
	return item, nil
}

func (f *fakeFetcher) Create(_ context.Context, item testItem) (testItem, error) {
	if f.createErr != nil {
		return testItem{}, f.createErr
	}
	item.ID = "created-1"
	return item, nil
}

func newTestSlice(f *fakeFetcher) *Slice[testItem, testFilter] {
	return New[testItem, testFilter]("items", f, zap.NewNop())
}

func loadPage(t *testing.T, s *Slice[testItem, testFilter], f *fakeFetcher, items ...testItem) {
	t.Helper()
	c := f.stage(1, items, nil)
	close(c.release)
	require.NoError(t, s.FetchList(context.Background(), 1, 20))
}

// ============================================
// List Fetch Tests
// ============================================

func TestFetchList_Success(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)

	loadPage(t, s, f, testItem{ID: "a"}, testItem{ID: "b"})

	st := s.State()
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 45, st.Total)
	assert.Equal(t, 3, st.TotalPages)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestFetchList_FailureKeepsItems(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a"})

	c := f.stage(2, nil, errors.New("backend down"))
	close(c.release)
	err := s.FetchList(context.Background(), 2, 20)

	require.Error(t, err)
	st := s.State()
	assert.Equal(t, "backend down", st.Error)
	assert.False(t, st.Loading)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "a", st.Items[0].ID)
}

func TestFetchList_UsesFilter(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)

	c := f.stage(1, nil, nil)
	close(c.release)
	err := s.FetchListWith(context.Background(), func(fl *testFilter) { fl.Status = "ready" }, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, "ready", c.filter.Status)
	assert.Equal(t, "ready", s.Filter().Status)
}

func TestFetchList_LatestRequestWins(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	page2 := f.stage(2, []testItem{{ID: "p2"}}, nil)
	page1 := f.stage(1, []testItem{{ID: "p1"}}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.FetchList(context.Background(), 2, 20)
	}()
	require.Equal(t, 2, <-f.started)
	go func() {
		defer wg.Done()
		_ = s.FetchList(context.Background(), 1, 20)
	}()
	require.Equal(t, 1, <-f.started)

	close(page1.release)
	require.Eventually(t, func() bool {
		return len(s.State().Items) == 1
	}, time.Second, time.Millisecond)
	assert.False(t, s.State().Loading)

	close(page2.release)
	wg.Wait()

	st := s.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "p1", st.Items[0].ID)
	assert.Equal(t, 1, st.Page)
}

func TestFetchList_StaleFirstStaysLoading(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	page2 := f.stage(2, []testItem{{ID: "p2"}}, nil)
	page1 := f.stage(1, []testItem{{ID: "p1"}}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.FetchList(context.Background(), 2, 20)
	}()
	<-f.started
	go func() {
		defer wg.Done()
		_ = s.FetchList(context.Background(), 1, 20)
	}()
	<-f.started

	close(page2.release)
	time.Sleep(20 * time.Millisecond)
	st := s.State()
	assert.True(t, st.Loading, "superseded response must not clear loading")
	assert.Empty(t, st.Items)

	close(page1.release)
	wg.Wait()
	assert.Equal(t, "p1", s.State().Items[0].ID)
}

// ============================================
// Detail Fetch Tests
// ============================================

func TestFetchByID(t *testing.T) {
	f := newFakeFetcher()
	f.items["a"] = testItem{ID: "a", Name: "Apples"}
	s := newTestSlice(f)

	require.NoError(t, s.FetchByID(context.Background(), "a"))

	st := s.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, "Apples", st.Current.Name)
	assert.False(t, st.CurrentLoading)

	err := s.FetchByID(context.Background(), "missing")
	require.Error(t, err)
	st = s.State()
	assert.Equal(t, "not found", st.CurrentError)
	assert.Equal(t, "Apples", st.Current.Name, "failed fetch keeps the previous current item")
	assert.Empty(t, st.Error, "detail errors do not touch list state")

	s.ClearCurrent()
	assert.Nil(t, s.State().Current)
}

// ============================================
// Create Tests
// ============================================

func TestCreate_PrependsAfterConfirmation(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a"})

	created, err := s.Create(context.Background(), testItem{Name: "New"})

	require.NoError(t, err)
	assert.Equal(t, "created-1", created.ID)
	st := s.State()
	require.Len(t, st.Items, 2)
	assert.Equal(t, "created-1", st.Items[0].ID)
	assert.Equal(t, 46, st.Total)
}

func TestCreate_FailureLeavesListUntouched(t *testing.T) {
	f := newFakeFetcher()
	f.createErr = errors.New("rejected")
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a"})

	_, err := s.Create(context.Background(), testItem{Name: "New"})

	require.Error(t, err)
	st := s.State()
	assert.Len(t, st.Items, 1)
	assert.Equal(t, 45, st.Total)
	assert.Equal(t, "rejected", st.Error)
}

// ============================================
// Patch Tests
// ============================================

func TestApplyPatch_MergesIntoListAndCurrent(t *testing.T) {
	f := newFakeFetcher()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := testItem{ID: "a", Name: "Apples", Status: "pending", Details: testDetails{Note: "n", Color: "red"}}
	f.items["a"] = a
	s := newTestSlice(f)
	loadPage(t, s, f, a, testItem{ID: "b", Status: "pending"})
	require.NoError(t, s.FetchByID(context.Background(), "a"))

	applied := s.ApplyPatch("a", Patch{
		"status":     "ready",
		"updated_at": at,
		"details":    map[string]any{"color": "green"},
	})

	require.True(t, applied)
	st := s.State()
	want := testItem{ID: "a", Name: "Apples", Status: "ready", Details: testDetails{Note: "n", Color: "green"}, UpdatedAt: at}
	assert.Equal(t, want, st.Items[0])
	assert.Equal(t, want, *st.Current)
	assert.Equal(t, "pending", st.Items[1].Status, "other entities unchanged")
}

func TestApplyPatch_UnknownIDIsNoop(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a", Status: "pending"})
	before := s.State()

	applied := s.ApplyPatch("zzz", Patch{"status": "ready"})

	assert.False(t, applied)
	assert.Equal(t, before.Items, s.State().Items)
}

func TestApplyPatch_CannotChangeID(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a"})

	s.ApplyPatch("a", Patch{"id": "b", "name": "Renamed"})

	item, ok := s.Find("a")
	require.True(t, ok)
	assert.Equal(t, "Renamed", item.Name)
}

func TestApplyPatch_TypeMismatchLeavesEntity(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a", Name: "Apples"})

	applied := s.ApplyPatch("a", Patch{"name": 42})

	assert.False(t, applied)
	item, _ := s.Find("a")
	assert.Equal(t, "Apples", item.Name)
}

func TestApplyPatch_SequenceOrdering(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	statusPatch := Patch{"status": "ready"}
	stampPatch := Patch{"updated_at": at, "details": map[string]any{"color": "green"}}

	tests := []struct {
		name    string
		patches []Patch
		want    testItem
	}{
		{
			name:    "disjoint fields, status first",
			patches: []Patch{statusPatch, stampPatch},
			want:    testItem{ID: "a", Name: "Apples", Status: "ready", Details: testDetails{Note: "n", Color: "green"}, UpdatedAt: at},
		},
		{
			name:    "disjoint fields, stamp first",
			patches: []Patch{stampPatch, statusPatch},
			want:    testItem{ID: "a", Name: "Apples", Status: "ready", Details: testDetails{Note: "n", Color: "green"}, UpdatedAt: at},
		},
		{
			name: "same field, last wins",
			patches: []Patch{
				{"status": "confirmed"},
				{"status": "preparing"},
				{"status": "delivered"},
			},
			want: testItem{ID: "a", Name: "Apples", Status: "delivered", Details: testDetails{Note: "n", Color: "red"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			a := testItem{ID: "a", Name: "Apples", Status: "pending", Details: testDetails{Note: "n", Color: "red"}}
			f.items["a"] = a
			s := newTestSlice(f)
			loadPage(t, s, f, a)
			require.NoError(t, s.FetchByID(context.Background(), "a"))

			for _, p := range tt.patches {
				require.True(t, s.ApplyPatch("a", p))
			}

			st := s.State()
			assert.Equal(t, tt.want, st.Items[0])
			require.NotNil(t, st.Current)
			assert.Equal(t, tt.want, *st.Current)
		})
	}
}

// guardedItem refuses to decode once archived unless it stays archived.
type guardedItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (g guardedItem) GetID() string { return g.ID }

func (g *guardedItem) UnmarshalJSON(b []byte) error {
	type plain guardedItem
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Name == "archived" && p.Status != "archived" {
		return errors.New("archived items are frozen")
	}
	*g = guardedItem(p)
	return nil
}

type staticFetcher struct {
	items   []guardedItem
	current guardedItem
}

func (f staticFetcher) List(context.Context, testFilter, int, int) (Page[guardedItem], error) {
	return Page[guardedItem]{Items: f.items, Total: len(f.items)}, nil
}

func (f staticFetcher) Get(context.Context, string) (guardedItem, error) {
	return f.current, nil
}

func (f staticFetcher) Create(_ context.Context, item guardedItem) (guardedItem, error) {
	return item, nil
}

func TestApplyPatch_CurrentFailureStillNotifiesListChange(t *testing.T) {
	f := staticFetcher{
		items:   []guardedItem{{ID: "a", Name: "Apples", Status: "pending"}},
		current: guardedItem{ID: "a", Name: "archived", Status: "archived"},
	}
	s := New[guardedItem, testFilter]("guarded", f, zap.NewNop())
	require.NoError(t, s.FetchList(context.Background(), 1, 20))
	require.NoError(t, s.FetchByID(context.Background(), "a"))

	var calls int
	sub := s.Subscribe(func() { calls++ })
	defer sub.Close()

	applied := s.ApplyPatch("a", Patch{"status": "ready"})

	assert.True(t, applied)
	assert.Equal(t, 1, calls)
	st := s.State()
	assert.Equal(t, "ready", st.Items[0].Status)
	assert.Equal(t, "archived", st.Current.Status)
}

func TestUpdate(t *testing.T) {
	f := newFakeFetcher()
	f.items["b"] = testItem{ID: "b", Name: "Bread"}
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a", Name: "Apples"})
	require.NoError(t, s.FetchByID(context.Background(), "b"))

	rename := func(i testItem) testItem {
		i.Name += " (edited)"
		return i
	}
	assert.True(t, s.Update("a", rename))
	assert.True(t, s.Update("b", rename))
	assert.False(t, s.Update("zzz", rename))

	item, ok := s.Find("a")
	require.True(t, ok)
	assert.Equal(t, "Apples (edited)", item.Name)
	item, ok = s.Find("b")
	require.True(t, ok, "current cache is searched too")
	assert.Equal(t, "Bread (edited)", item.Name)
}

// ============================================
// Commit / Replace Tests
// ============================================

func TestCommit(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a", Status: "pending"})

	_, err := s.Commit(context.Background(), func(context.Context) (testItem, error) {
		return testItem{ID: "a", Status: "confirmed"}, nil
	})
	require.NoError(t, err)
	item, _ := s.Find("a")
	assert.Equal(t, "confirmed", item.Status)

	_, err = s.Commit(context.Background(), func(context.Context) (testItem, error) {
		return testItem{}, errors.New("conflict")
	})
	require.Error(t, err)
	item, _ = s.Find("a")
	assert.Equal(t, "confirmed", item.Status)
	assert.Equal(t, "conflict", s.State().Error)

	s.ClearError()
	assert.Empty(t, s.State().Error)
}

func TestReplace_AbsentIsNoop(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a"})

	assert.False(t, s.Replace(testItem{ID: "z"}))
	assert.Len(t, s.State().Items, 1)
}

// ============================================
// Subscription Tests
// ============================================

func TestSubscribe_NotifiedOnChange(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)

	var calls int
	sub := s.Subscribe(func() { calls++ })
	loadPage(t, s, f, testItem{ID: "a"})
	assert.Equal(t, 2, calls, "loading and loaded")

	sub.Close()
	s.ApplyPatch("a", Patch{"name": "x"})
	assert.Equal(t, 2, calls)
}

func TestReset(t *testing.T) {
	f := newFakeFetcher()
	s := newTestSlice(f)
	loadPage(t, s, f, testItem{ID: "a"})
	s.SetFilter(func(fl *testFilter) { fl.Search = "x" })

	s.Reset()

	st := s.State()
	assert.Empty(t, st.Items)
	assert.Equal(t, testFilter{}, st.Filter)
	assert.Equal(t, DefaultPageSize, st.PageSize)
}
