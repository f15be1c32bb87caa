// Package notification keeps the in-app notification history and the
// transient toast queue.
package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocery-sync/internal/observer"
)

const DefaultCapacity = 100

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity maps a wire value to a Severity, defaulting to info.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeveritySuccess, SeverityInfo, SeverityWarning, SeverityError:
		return Severity(s)
	default:
		return SeverityInfo
	}
}

type Notification struct {
	ID        string          `json:"id"`
	Severity  Severity        `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"timestamp"`
	Read      bool            `json:"read"`
}

// Center is a capped, newest-first list of notifications with an unread
// counter. The counter always equals the number of unread records.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	unread   int
	capacity int

	now   func() time.Time
	newID func() string

	observers observer.Registry
}

func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{
		capacity: capacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Append stores n at the head. ID and CreatedAt are assigned when empty and
// the record always starts unread. Records beyond capacity are evicted
// oldest first.
func (c *Center) Append(n Notification) Notification {
	c.mu.Lock()
	if n.ID == "" {
		n.ID = c.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	n.Read = false

	c.items = append([]Notification{n}, c.items...)
	c.unread++
	for len(c.items) > c.capacity {
		evicted := c.items[len(c.items)-1]
		c.items = c.items[:len(c.items)-1]
		if !evicted.Read {
			c.unread--
		}
	}
	c.mu.Unlock()

	c.observers.Notify()
	return n
}

// Push is a shorthand for Append with a payload that is JSON encoded.
// Payloads that fail to encode are dropped.
func (c *Center) Push(severity Severity, title, message string, payload any) Notification {
	n := Notification{Severity: severity, Title: title, Message: message}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			n.Payload = raw
		}
	}
	return c.Append(n)
}

// MarkRead flips one record to read. Marking an already read or unknown
// record changes nothing.
func (c *Center) MarkRead(id string) bool {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if c.items[i].ID == id {
			if !c.items[i].Read {
				c.items[i].Read = true
				c.unread--
				changed = true
			}
			break
		}
	}
	c.mu.Unlock()

	if changed {
		c.observers.Notify()
	}
	return changed
}

func (c *Center) MarkAllRead() {
	c.mu.Lock()
	for i := range c.items {
		c.items[i].Read = true
	}
	c.unread = 0
	c.mu.Unlock()
	c.observers.Notify()
}

func (c *Center) Remove(id string) bool {
	c.mu.Lock()
	removed := false
	for i := range c.items {
		if c.items[i].ID == id {
			if !c.items[i].Read {
				c.unread--
			}
			c.items = append(c.items[:i], c.items[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()

	if removed {
		c.observers.Notify()
	}
	return removed
}

func (c *Center) ClearAll() {
	c.mu.Lock()
	c.items = nil
	c.unread = 0
	c.mu.Unlock()
	c.observers.Notify()
}

// List returns a copy, newest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Center) Subscribe(fn func()) *observer.Subscription {
	return c.observers.Subscribe(fn)
}
