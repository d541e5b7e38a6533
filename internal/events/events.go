package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	BookingConfirmed Kind = "bookingConfirmed"
	PaymentReceived  Kind = "paymentReceived"
	BookingExpired   Kind = "bookingExpired"
	BookingCancelled Kind = "bookingCancelled"
	BookingRejected  Kind = "bookingRejected"
	BookingCompleted Kind = "bookingCompleted"
)

type Event struct {
	Kind          Kind
	BookingID     int
	BookingNumber string
	Reference     string
	OccurredAt    time.Time
}

type Handler func(ctx context.Context, e Event)

// Dispatcher fans domain events out to subscribers. Publishers call it
// only after the state transition is durably committed, so a subscriber
// never observes an event for a rolled-back change.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
}

// LogHandler is the default subscriber; notification delivery itself is
// an external collaborator.
func LogHandler(_ context.Context, e Event) {
	zap.L().Info("domain event",
		zap.String("kind", string(e.Kind)),
		zap.Int("booking_id", e.BookingID),
		zap.String("booking_number", e.BookingNumber),
		zap.Time("occurred_at", e.OccurredAt),
	)
}
