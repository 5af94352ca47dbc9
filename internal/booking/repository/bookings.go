package repository

import (
	"context"
	"sync"

	"github.com/example/eurent/internal/booking/domain"
)

// MemoryBookingStore is the sole owner of booking records. Records are kept
// in insertion order; ids are assigned from a monotonic counter so they are
// unique for the process lifetime.
type MemoryBookingStore struct {
	mu       sync.RWMutex
	bookings []domain.Booking
	byID     map[int64]int
	nextID   int64
}

// NewMemoryBookingStore constructs an empty store.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{byID: make(map[int64]int), nextID: 1}
}

// Append assigns the next id and stores the booking.
func (s *MemoryBookingStore) Append(_ context.Context, b domain.Booking) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextID
	s.nextID++
	s.byID[b.ID] = len(s.bookings)
	s.bookings = append(s.bookings, b)
	return b, nil
}

// GetByID retrieves a booking.
func (s *MemoryBookingStore) GetByID(_ context.Context, id int64) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return s.bookings[idx], nil
}

// Update replaces a stored booking in place, preserving its position.
func (s *MemoryBookingStore) Update(_ context.Context, b domain.Booking) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[b.ID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	s.bookings[idx] = b
	return b, nil
}

// List returns all bookings in insertion order.
func (s *MemoryBookingStore) List(_ context.Context) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Booking(nil), s.bookings...), nil
}

// ListByCustomer returns bookings whose customer snapshot matches name.
func (s *MemoryBookingStore) ListByCustomer(_ context.Context, name string) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.Customer.Name == name {
			out = append(out, b)
		}
	}
	return out, nil
}
