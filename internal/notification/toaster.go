package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocery-sync/internal/observer"
)

const (
	DefaultToastTTL = 6 * time.Second
	ErrorToastTTL   = 8 * time.Second
)

type Toast struct {
	ID       string
	Severity Severity
	Title    string
	Message  string
	ShownAt  time.Time
}

// Toaster holds short-lived messages. Each toast owns a timer that removes
// it; Close stops every pending timer.
type Toaster struct {
	mu       sync.Mutex
	toasts   []Toast
	timers   map[string]*time.Timer
	ttl      time.Duration
	errorTTL time.Duration
	closed   bool

	observers observer.Registry
}

// NewToaster uses the default lifetimes when ttl or errorTTL is zero.
func NewToaster(ttl, errorTTL time.Duration) *Toaster {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	if errorTTL <= 0 {
		errorTTL = ErrorToastTTL
	}
	return &Toaster{
		timers:   make(map[string]*time.Timer),
		ttl:      ttl,
		errorTTL: errorTTL,
	}
}

func (t *Toaster) Show(severity Severity, title, message string) Toast {
	toast := Toast{
		ID:       uuid.NewString(),
		Severity: severity,
		Title:    title,
		Message:  message,
		ShownAt:  time.Now(),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return toast
	}
	ttl := t.ttl
	if severity == SeverityError {
		ttl = t.errorTTL
	}
	t.toasts = append(t.toasts, toast)
	id := toast.ID
	t.timers[id] = time.AfterFunc(ttl, func() { t.Dismiss(id) })
	t.mu.Unlock()

	t.observers.Notify()
	return toast
}

func (t *Toaster) Dismiss(id string) bool {
	t.mu.Lock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	removed := false
	for i := range t.toasts {
		if t.toasts[i].ID == id {
			t.toasts = append(t.toasts[:i], t.toasts[i+1:]...)
			removed = true
			break
		}
	}
	t.mu.Unlock()

	if removed {
		t.observers.Notify()
	}
	return removed
}

func (t *Toaster) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Toast(nil), t.toasts...)
}

func (t *Toaster) Subscribe(fn func()) *observer.Subscription {
	return t.observers.Subscribe(fn)
}

// Close stops all timers and drops pending toasts.
func (t *Toaster) Close() {
	t.mu.Lock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.toasts = nil
	t.closed = true
	t.mu.Unlock()
}
