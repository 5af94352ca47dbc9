package domain

import (
	"context"
	"errors"
	"time"
)

// BookingStatus tracks a booking through its rental lifecycle.
type BookingStatus string

const (
	StatusNew        BookingStatus = "new"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
)

// Recognized rental categories. Catalog entries may carry arbitrary
// category strings; validation happens at booking time only.
const (
	CategoryEconomic = "economic"
	CategoryStandard = "standard"
	CategoryPremium  = "premium"
)

// Categories lists the recognized categories in their canonical order.
var Categories = []string{CategoryEconomic, CategoryStandard, CategoryPremium}

// ValidCategory reports whether c is one of the recognized categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

var (
	ErrInvalidDateFormat  = errors.New("invalid date format")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrAlreadyCompleted   = errors.New("booking already completed")
	ErrAlreadyPickedUp    = errors.New("booking already picked up")
	ErrNotPickedUp        = errors.New("booking not yet picked up")
	ErrDuplicateVehicle   = errors.New("vehicle already exists")
	ErrDuplicateCustomer  = errors.New("customer already exists")
	ErrInvalidRequestType = errors.New("invalid request type")
)

// InvalidCategoryError reports a booking request for a category outside the
// recognized set.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return "invalid car category: " + e.Category
}

// NoVehicleAvailableError signals that every vehicle of the category is
// committed to an overlapping booking. It is informational, not a failure.
type NoVehicleAvailableError struct {
	Category string
}

func (e *NoVehicleAvailableError) Error() string {
	return "no " + e.Category + " cars available"
}

// PickupTooEarlyError rejects a pickup attempted before the booking window
// opens. Start is the earliest allowed pickup date.
type PickupTooEarlyError struct {
	Start Date
}

func (e *PickupTooEarlyError) Error() string {
	return "pickup not allowed before " + e.Start.String()
}

// DropoffPastDueError reports a drop-off after the booking window closed.
// The booking is still marked completed.
type DropoffPastDueError struct {
	End Date
}

func (e *DropoffPastDueError) Error() string {
	return "drop off due on or before " + e.End.String()
}

// DropoffPrematureError reports a drop-off before the booking window
// opened. The booking is still marked completed.
type DropoffPrematureError struct {
	Start Date
}

func (e *DropoffPrematureError) Error() string {
	return "drop off before booking start " + e.Start.String()
}

// Vehicle is a fleet catalog entry. Category is an open string at catalog
// level; full-field equality is identity for duplicate detection.
type Vehicle struct {
	Model    string `json:"model"`
	Plate    string `json:"license_plate"`
	Category string `json:"type"`
	DailyFee int    `json:"fee"`
}

// Customer is a directory entry. (Name, Phone) is unique.
type Customer struct {
	ID           int    `json:"ID"`
	Name         string `json:"name"`
	Phone        string `json:"mobile"`
	BookingCount int    `json:"bookings"`
}

// Booking binds one vehicle to one customer for an inclusive date range.
// The binding is fixed at creation and never re-resolved.
type Booking struct {
	ID        int64         `json:"booking_id"`
	Customer  Customer      `json:"customer"`
	Vehicle   Vehicle       `json:"car"`
	StartDate Date          `json:"start_date"`
	EndDate   Date          `json:"end_date"`
	Status    BookingStatus `json:"status"`
}

// Overlaps applies the canonical availability predicate: the query interval
// conflicts when either of its endpoints falls inside the booked interval,
// inclusive on both ends. A query strictly containing the booked interval
// escapes this test; tests document that gap.
func (b Booking) Overlaps(start, end Date) bool {
	if !start.Before(b.StartDate) && !start.After(b.EndDate) {
		return true
	}
	if !end.Before(b.StartDate) && !end.After(b.EndDate) {
		return true
	}
	return false
}

// BookingEventType labels booking lifecycle events.
type BookingEventType string

const (
	EventBookingCreated    BookingEventType = "BookingCreated"
	EventVehiclePickedUp   BookingEventType = "VehiclePickedUp"
	EventVehicleDroppedOff BookingEventType = "VehicleDroppedOff"
)

// BookingEvent is published after a state change commits.
type BookingEvent struct {
	ID        string           `json:"id"`
	BookingID int64            `json:"booking_id"`
	Type      BookingEventType `json:"type"`
	Payload   map[string]any   `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// BookingRepository owns all booking records in insertion order.
type BookingRepository interface {
	Append(ctx context.Context, b Booking) (Booking, error)
	GetByID(ctx context.Context, id int64) (Booking, error)
	Update(ctx context.Context, b Booking) (Booking, error)
	List(ctx context.Context) ([]Booking, error)
	ListByCustomer(ctx context.Context, name string) ([]Booking, error)
}

// FleetCatalog exposes the vehicle inventory in catalog order.
type FleetCatalog interface {
	ListByCategory(ctx context.Context, category string) ([]Vehicle, error)
	ListByModel(ctx context.Context, model string) ([]Vehicle, error)
	List(ctx context.Context) ([]Vehicle, error)
	Add(ctx context.Context, v Vehicle) error
}

// CustomerDirectory exposes customer lookup and the bookingCount side
// effect performed on successful allocation.
type CustomerDirectory interface {
	FindByName(ctx context.Context, name string) (Customer, bool, error)
	Add(ctx context.Context, name, phone string) (Customer, error)
	List(ctx context.Context) ([]Customer, error)
	IncrementBookings(ctx context.Context, id int) error
}

// EventPublisher emits booking events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// IdempotencyRepository caches creation responses keyed by client token.
type IdempotencyRepository interface {
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	PutResponse(ctx context.Context, key string, payload []byte) error
}

// Clock abstracts wall-clock time so date gates are testable. "today" is
// recomputed from it on every request.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
