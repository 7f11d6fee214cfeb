package services

import (
	"context"
	"log"
	"time"
)

// Event is a lifecycle change worth telling someone about.
type Event struct {
	Domain     string         `json:"domain"`
	Kind       string         `json:"kind"`
	ID         uint           `json:"id"`
	Status     string         `json:"status"`
	Recipients []uint         `json:"-"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data,omitempty"`
	At         time.Time      `json:"at"`
}

// Type is the message type used on every channel, e.g. "booking.assigned".
func (e Event) Type() string {
	return e.Kind + "." + e.Status
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Fanout delivers to every notifier. Delivery is best-effort: failures are
// logged and never reach the caller.
type Fanout struct {
	notifiers []Notifier
}

func NewFanout(notifiers ...Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

func (f *Fanout) Add(n Notifier) {
	if n != nil {
		f.notifiers = append(f.notifiers, n)
	}
}

func (f *Fanout) Notify(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, e); err != nil {
			log.Printf("notify %s %d via %T: %v", e.Type(), e.ID, n, err)
		}
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

func uniqueIDs(ids ...uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
