// Package notify carries order lifecycle events to whoever is listening.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/canteenkart/utils"
)

const (
	EventNewOrder    = "new_order"
	EventOrderUpdate = "order_update"
)

type Event struct {
	Name      string    `json:"event"`
	OrderID   uint      `json:"order_id"`
	UserID    uint      `json:"user_id"`
	Status    string    `json:"status,omitempty"`
	Token     string    `json:"token,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers an event. Implementations log their own failures;
// callers never wait on or react to delivery.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// Async delivers on a background goroutine so a slow listener never holds up
// the request that produced the event.
func Async(next Notifier, timeout time.Duration) *AsyncNotifier {
	return &AsyncNotifier{next: next, timeout: timeout}
}

func (a *AsyncNotifier) Notify(_ context.Context, ev Event) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				utils.ErrorLogger.Errorf("notifier panic on %s for order %d: %v", ev.Name, ev.OrderID, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.next.Notify(ctx, ev)
	}()
}

// Wait blocks until in-flight deliveries finish.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}

// Recorder keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
