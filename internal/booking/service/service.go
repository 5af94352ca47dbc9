package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/example/eurent/internal/booking/domain"
)

// AvailabilityResolver reports the free vehicles of a category for an
// inclusive date range, in catalog order.
type AvailabilityResolver interface {
	FindAvailable(ctx context.Context, category string, start, end domain.Date) ([]domain.Vehicle, error)
}

// Service is the reservation allocator and lifecycle manager. Allocation
// runs under a single coarse lock so availability resolution and the store
// append are observed atomically; two concurrent requests can never commit
// the same vehicle for overlapping ranges.
type Service struct {
	allocMu sync.Mutex

	store      domain.BookingRepository
	customers  domain.CustomerDirectory
	resolver   AvailabilityResolver
	events     domain.EventPublisher
	clock      domain.Clock
	idempotent domain.IdempotencyRepository
}

// New constructs a Service with the required collaborators.
func New(store domain.BookingRepository, customers domain.CustomerDirectory, resolver AvailabilityResolver, events domain.EventPublisher, clock domain.Clock, idem domain.IdempotencyRepository) *Service {
	return &Service{store: store, customers: customers, resolver: resolver, events: events, clock: clock, idempotent: idem}
}

// CreateBookingRequest carries the raw creation parameters. Dates arrive
// as dd-mm-yyyy strings and are validated here, not at the transport.
type CreateBookingRequest struct {
	Category     string
	StartDate    string
	EndDate      string
	CustomerName string
}

// CreateBookingResponse returns the committed booking identity.
type CreateBookingResponse struct {
	BookingID int64                `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
}

// CreateBooking validates the request, resolves availability, binds the
// first free vehicle and appends the booking in status new.
//
// The validation order is fixed: date format, date range, category,
// availability, customer. Each check short-circuits; no side effect happens
// before the customer lookup succeeds, at which point the allocation is
// guaranteed to commit.
func (s *Service) CreateBooking(ctx context.Context, key string, req CreateBookingRequest) (CreateBookingResponse, error) {
	if key != "" && s.idempotent != nil {
		if cached, ok, err := s.idempotent.GetResponse(ctx, key); err == nil && ok {
			var resp CreateBookingResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
		}
	}

	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return CreateBookingResponse{}, domain.ErrInvalidDateFormat
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return CreateBookingResponse{}, domain.ErrInvalidDateFormat
	}

	today := domain.DateOf(s.clock.Now())
	if start.Before(today) || end.Before(start) {
		return CreateBookingResponse{}, domain.ErrInvalidDateRange
	}

	if !domain.ValidCategory(req.Category) {
		return CreateBookingResponse{}, &domain.InvalidCategoryError{Category: req.Category}
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	candidates, err := s.resolver.FindAvailable(ctx, req.Category, start, end)
	if err != nil {
		return CreateBookingResponse{}, fmt.Errorf("resolve availability: %w", err)
	}
	if len(candidates) == 0 {
		return CreateBookingResponse{}, &domain.NoVehicleAvailableError{Category: req.Category}
	}
	vehicle := candidates[0]

	customer, found, err := s.customers.FindByName(ctx, req.CustomerName)
	if err != nil {
		return CreateBookingResponse{}, fmt.Errorf("find customer: %w", err)
	}
	if !found {
		return CreateBookingResponse{}, domain.ErrCustomerNotFound
	}
	if err := s.customers.IncrementBookings(ctx, customer.ID); err != nil {
		return CreateBookingResponse{}, fmt.Errorf("increment bookings: %w", err)
	}
	customer.BookingCount++

	created, err := s.store.Append(ctx, domain.Booking{
		Customer:  customer,
		Vehicle:   vehicle,
		StartDate: start,
		EndDate:   end,
		Status:    domain.StatusNew,
	})
	if err != nil {
		return CreateBookingResponse{}, fmt.Errorf("append booking: %w", err)
	}

	s.publish(ctx, created.ID, domain.EventBookingCreated, map[string]any{
		"customer": customer.Name,
		"plate":    vehicle.Plate,
		"start":    start.String(),
		"end":      end.String(),
	})

	resp := CreateBookingResponse{BookingID: created.ID, Status: created.Status}
	if key != "" && s.idempotent != nil {
		if payload, err := json.Marshal(resp); err == nil {
			_ = s.idempotent.PutResponse(ctx, key, payload)
		}
	}
	return resp, nil
}

// Pickup transitions a new booking to in_progress. The earliest allowed
// pickup day is the booking's start date, inclusive.
func (s *Service) Pickup(ctx context.Context, id int64) (domain.Booking, error) {
	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}

	if booking.Status == domain.StatusCompleted {
		return booking, domain.ErrAlreadyCompleted
	}

	today := domain.DateOf(s.clock.Now())
	if today.Before(booking.StartDate) && today.Before(booking.EndDate) {
		return booking, &domain.PickupTooEarlyError{Start: booking.StartDate}
	}

	if booking.Status != domain.StatusNew {
		return booking, domain.ErrAlreadyPickedUp
	}

	booking.Status = domain.StatusInProgress
	updated, err := s.store.Update(ctx, booking)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("update booking: %w", err)
	}

	s.publish(ctx, updated.ID, domain.EventVehiclePickedUp, map[string]any{"plate": updated.Vehicle.Plate})
	return updated, nil
}

// Dropoff transitions an in_progress booking to completed. The transition
// commits before the date gates run: a late or premature drop-off still
// completes the booking and only changes the reported outcome.
func (s *Service) Dropoff(ctx context.Context, id int64) (domain.Booking, error) {
	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}

	if booking.Status != domain.StatusInProgress {
		return booking, domain.ErrNotPickedUp
	}

	booking.Status = domain.StatusCompleted
	updated, err := s.store.Update(ctx, booking)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("update booking: %w", err)
	}
	s.publish(ctx, updated.ID, domain.EventVehicleDroppedOff, map[string]any{"plate": updated.Vehicle.Plate})

	today := domain.DateOf(s.clock.Now())
	if today.After(updated.EndDate) {
		return updated, &domain.DropoffPastDueError{End: updated.EndDate}
	}
	if today.Before(updated.StartDate) {
		return updated, &domain.DropoffPrematureError{Start: updated.StartDate}
	}
	return updated, nil
}

// GetBooking retrieves a booking by id.
func (s *Service) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return s.store.GetByID(ctx, id)
}

// ListBookings returns all bookings in creation order.
func (s *Service) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.store.List(ctx)
}

// BookingsByCustomer returns the bookings bound to the named customer.
func (s *Service) BookingsByCustomer(ctx context.Context, name string) ([]domain.Booking, error) {
	return s.store.ListByCustomer(ctx, name)
}

func (s *Service) publish(ctx context.Context, bookingID int64, typ domain.BookingEventType, payload map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, domain.BookingEvent{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Type:      typ,
		Payload:   payload,
		CreatedAt: s.clock.Now(),
	})
}
