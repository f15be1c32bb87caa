package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SubscribeNotifyClose(t *testing.T) {
	var r Registry
	calls := 0

	sub := r.Subscribe(func() { calls++ })
	r.Notify()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, r.Len())

	sub.Close()
	sub.Close()
	r.Notify()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len())
}

func TestSubscription_CloseNil(t *testing.T) {
	var sub *Subscription
	assert.NotPanics(t, sub.Close)
}
