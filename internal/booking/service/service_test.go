package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/eurent/internal/booking/availability"
	"github.com/example/eurent/internal/booking/domain"
	"github.com/example/eurent/internal/booking/repository"
	"github.com/example/eurent/internal/booking/service"
)

type stubPublisher struct{ events []domain.BookingEvent }

func (s *stubPublisher) Publish(_ context.Context, event domain.BookingEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

// today is the fixed "current date" every test runs under.
var today = time.Date(2030, time.June, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc       *service.Service
	store     *repository.MemoryBookingStore
	customers *repository.MemoryCustomerDirectory
	fleet     *repository.MemoryFleetCatalog
	publisher *stubPublisher
}

func newFixture(t *testing.T, vehicles ...domain.Vehicle) *fixture {
	t.Helper()
	fleet := repository.NewMemoryFleetCatalog()
	ctx := context.Background()
	for _, v := range vehicles {
		require.NoError(t, fleet.Add(ctx, v))
	}
	store := repository.NewMemoryBookingStore()
	customers := repository.NewMemoryCustomerDirectory()
	publisher := &stubPublisher{}
	svc := service.New(store, customers, availability.NewResolver(fleet, store), publisher, stubClock{t: today}, repository.NewMemoryIdempotencyRepo())
	return &fixture{svc: svc, store: store, customers: customers, fleet: fleet, publisher: publisher}
}

func economicGolf() domain.Vehicle {
	return domain.Vehicle{Model: "Volkswagen Golf", Plate: "B-EU 1001", Category: "economic", DailyFee: 40}
}

func createReq(start, end string) service.CreateBookingRequest {
	return service.CreateBookingRequest{
		Category:     "economic",
		StartDate:    start,
		EndDate:      end,
		CustomerName: "Mike Ross",
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	f := newFixture(t, economicGolf())
	ctx := context.Background()

	resp, err := f.svc.CreateBooking(ctx, "", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.BookingID)
	require.Equal(t, domain.StatusNew, resp.Status)

	stored, err := f.store.GetByID(ctx, resp.BookingID)
	require.NoError(t, err)
	require.Equal(t, economicGolf(), stored.Vehicle)
	require.Equal(t, "Mike Ross", stored.Customer.Name)
	require.Equal(t, 1, stored.Customer.BookingCount)

	mike, _, err := f.customers.FindByName(ctx, "Mike Ross")
	require.NoError(t, err)
	require.Equal(t, 1, mike.BookingCount)

	require.Len(t, f.publisher.events, 1)
	require.Equal(t, domain.EventBookingCreated, f.publisher.events[0].Type)
	require.Equal(t, resp.BookingID, f.publisher.events[0].BookingID)
}

func TestCreateBookingVehicleUnavailableForOverlappingRange(t *testing.T) {
	f := newFixture(t, economicGolf())
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, "", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, "", createReq("11-06-2030", "15-06-2030"))
	var noVehicle *domain.NoVehicleAvailableError
	require.ErrorAs(t, err, &noVehicle)
	require.Equal(t, "economic", noVehicle.Category)

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestCreateBookingDisjointRangeReusesVehicle(t *testing.T) {
	f := newFixture(t, economicGolf())
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, "", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, "", createReq("13-06-2030", "15-06-2030"))
	require.NoError(t, err)

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Same vehicle, non-overlapping intervals.
	require.Equal(t, all[0].Vehicle, all[1].Vehicle)
	require.False(t, all[0].Overlaps(all[1].StartDate, all[1].EndDate))
}

func TestCreateBookingSelectsFirstInCatalogOrder(t *testing.T) {
	second := domain.Vehicle{Model: "Opel Corsa", Plate: "B-EU 1002", Category: "economic", DailyFee: 35}
	f := newFixture(t, economicGolf(), second)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, "", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)
	booked, err := f.store.GetByID(ctx, first.BookingID)
	require.NoError(t, err)
	require.Equal(t, economicGolf(), booked.Vehicle)

	next, err := f.svc.CreateBooking(ctx, "", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)
	booked, err = f.store.GetByID(ctx, next.BookingID)
	require.NoError(t, err)
	require.Equal(t, second, booked.Vehicle)
}

func TestCreateBookingInvalidDateFormat(t *testing.T) {
	f := newFixture(t, economicGolf())
	for _, tc := range [][2]string{
		{"2030-06-10", "12-06-2030"},
		{"10-06-2030", "garbage"},
		{"", ""},
	} {
		_, err := f.svc.CreateBooking(context.Background(), "", createReq(tc[0], tc[1]))
		require.ErrorIs(t, err, domain.ErrInvalidDateFormat)
	}
	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCreateBookingStartBeforeTodayRejected(t *testing.T) {
	f := newFixture(t, economicGolf())

	_, err := f.svc.CreateBooking(context.Background(), "", createReq("31-05-2030", "12-06-2030"))
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)

	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCreateBookingStartTodayAllowed(t *testing.T) {
	f := newFixture(t, economicGolf())
	_, err := f.svc.CreateBooking(context.Background(), "", createReq("01-06-2030", "03-06-2030"))
	require.NoError(t, err)
}

func TestCreateBookingEndBeforeStartRejected(t *testing.T) {
	f := newFixture(t, economicGolf())
	_, err := f.svc.CreateBooking(context.Background(), "", createReq("12-06-2030", "10-06-2030"))
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestCreateBookingUnknownCategory(t *testing.T) {
	f := newFixture(t, economicGolf())
	req := createReq("10-06-2030", "12-06-2030")
	req.Category = "luxury"

	_, err := f.svc.CreateBooking(context.Background(), "", req)
	var invalid *domain.InvalidCategoryError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "luxury", invalid.Category)
}

func TestCreateBookingUnknownCustomerLeavesNoSideEffects(t *testing.T) {
	f := newFixture(t, economicGolf())
	req := createReq("10-06-2030", "12-06-2030")
	req.CustomerName = "Rachel Zane"

	_, err := f.svc.CreateBooking(context.Background(), "", req)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)

	customers, err := f.customers.List(context.Background())
	require.NoError(t, err)
	for _, c := range customers {
		require.Zero(t, c.BookingCount)
	}
}

func TestCreateBookingIdempotencyKeyReplaysResponse(t *testing.T) {
	f := newFixture(t, economicGolf())
	ctx := context.Background()

	resp, err := f.svc.CreateBooking(ctx, "key-1", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)

	replayed, err := f.svc.CreateBooking(ctx, "key-1", createReq("10-06-2030", "12-06-2030"))
	require.NoError(t, err)
	require.Equal(t, resp.BookingID, replayed.BookingID)

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestNoOverlappingIntervalsPerVehicleAfterManyCreations(t *testing.T) {
	f := newFixture(t, economicGolf(),
		domain.Vehicle{Model: "Opel Corsa", Plate: "B-EU 1002", Category: "economic", DailyFee: 35})
	ctx := context.Background()

	ranges := [][2]string{
		{"10-06-2030", "12-06-2030"},
		{"11-06-2030", "13-06-2030"},
		{"12-06-2030", "14-06-2030"},
		{"15-06-2030", "16-06-2030"},
		{"16-06-2030", "20-06-2030"},
		{"18-06-2030", "19-06-2030"},
	}
	for _, r := range ranges {
		_, _ = f.svc.CreateBooking(ctx, "", createReq(r[0], r[1]))
	}

	all, err := f.store.List(ctx)
	require.NoError(t, err)
	for i, a := range all {
		for j, b := range all {
			if i == j || a.Vehicle != b.Vehicle {
				continue
			}
			require.False(t, a.Overlaps(b.StartDate, b.EndDate),
				"bookings %d and %d overlap on vehicle %s", a.ID, b.ID, a.Vehicle.Plate)
		}
	}
}

func mustCreate(t *testing.T, f *fixture, start, end string) int64 {
	t.Helper()
	resp, err := f.svc.CreateBooking(context.Background(), "", createReq(start, end))
	require.NoError(t, err)
	return resp.BookingID
}

func TestPickupOnStartDateSucceeds(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")

	booking, err := f.svc.Pickup(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, booking.Status)

	require.Len(t, f.publisher.events, 2)
	require.Equal(t, domain.EventVehiclePickedUp, f.publisher.events[1].Type)
}

func TestPickupBeforeStartDateTooEarly(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "02-06-2030", "03-06-2030") // starts tomorrow

	_, err := f.svc.Pickup(context.Background(), id)
	var tooEarly *domain.PickupTooEarlyError
	require.ErrorAs(t, err, &tooEarly)
	require.Equal(t, "02-06-2030", tooEarly.Start.String())

	stored, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNew, stored.Status)
}

func TestPickupTwiceRejected(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")

	_, err := f.svc.Pickup(context.Background(), id)
	require.NoError(t, err)
	_, err = f.svc.Pickup(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrAlreadyPickedUp)
}

func TestPickupCompletedBookingRejected(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")

	_, err := f.svc.Pickup(context.Background(), id)
	require.NoError(t, err)
	_, err = f.svc.Dropoff(context.Background(), id)
	require.NoError(t, err)

	_, err = f.svc.Pickup(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrAlreadyCompleted)
}

func TestPickupUnknownBooking(t *testing.T) {
	f := newFixture(t, economicGolf())
	_, err := f.svc.Pickup(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestDropoffBeforePickupRejected(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")

	_, err := f.svc.Dropoff(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrNotPickedUp)

	stored, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNew, stored.Status)
}

func TestDropoffWithinWindowSucceeds(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")

	_, err := f.svc.Pickup(context.Background(), id)
	require.NoError(t, err)
	booking, err := f.svc.Dropoff(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, booking.Status)

	require.Len(t, f.publisher.events, 3)
	require.Equal(t, domain.EventVehicleDroppedOff, f.publisher.events[2].Type)
}

func TestDropoffPastDueStillCompletes(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")
	_, err := f.svc.Pickup(context.Background(), id)
	require.NoError(t, err)

	// Shift the clock past the end date and drop off late.
	late := service.New(f.store, f.customers, availability.NewResolver(f.fleet, f.store), f.publisher,
		stubClock{t: time.Date(2030, time.June, 10, 9, 0, 0, 0, time.UTC)}, repository.NewMemoryIdempotencyRepo())
	_, err = late.Dropoff(context.Background(), id)
	var pastDue *domain.DropoffPastDueError
	require.ErrorAs(t, err, &pastDue)
	require.Equal(t, "03-06-2030", pastDue.End.String())

	stored, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestDropoffTwiceRejectedAsNotInProgress(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")
	_, err := f.svc.Pickup(context.Background(), id)
	require.NoError(t, err)
	_, err = f.svc.Dropoff(context.Background(), id)
	require.NoError(t, err)

	// Status is already completed, not in_progress.
	_, err = f.svc.Dropoff(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrNotPickedUp)
}

func TestDropoffUnknownBooking(t *testing.T) {
	f := newFixture(t, economicGolf())
	_, err := f.svc.Dropoff(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestQueries(t *testing.T) {
	f := newFixture(t, economicGolf())
	id := mustCreate(t, f, "01-06-2030", "03-06-2030")

	got, err := f.svc.GetBooking(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)

	all, err := f.svc.ListBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	mine, err := f.svc.BookingsByCustomer(context.Background(), "Mike Ross")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	none, err := f.svc.BookingsByCustomer(context.Background(), "Harvey Specter")
	require.NoError(t, err)
	require.Empty(t, none)
}
