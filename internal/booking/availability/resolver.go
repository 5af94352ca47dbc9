package availability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/eurent/internal/booking/domain"
)

// Resolver computes which vehicles of a category are free for an inclusive
// date range. Candidates come back in catalog order; downstream selection
// always takes the first element, so that order is the priority order.
type Resolver struct {
	fleet    domain.FleetCatalog
	bookings domain.BookingRepository
}

// NewResolver constructs a Resolver over the fleet catalog and booking
// store.
func NewResolver(fleet domain.FleetCatalog, bookings domain.BookingRepository) *Resolver {
	return &Resolver{fleet: fleet, bookings: bookings}
}

// FindAvailable returns the vehicles of the category not committed to a
// booking whose interval overlaps [start, end]. An empty result is not an
// error; it means no vehicle is available.
func (r *Resolver) FindAvailable(ctx context.Context, category string, start, end domain.Date) ([]domain.Vehicle, error) {
	began := time.Now()

	candidates, err := r.fleet.ListByCategory(ctx, category)
	if err != nil {
		resolveDuration.With(prometheus.Labels{"result": "error"}).Observe(time.Since(began).Seconds())
		return nil, err
	}

	booked, err := r.bookings.List(ctx)
	if err != nil {
		resolveDuration.With(prometheus.Labels{"result": "error"}).Observe(time.Since(began).Seconds())
		return nil, err
	}

	for _, b := range booked {
		if !b.Overlaps(start, end) {
			continue
		}
		candidates = remove(candidates, b.Vehicle)
	}

	result := "available"
	if len(candidates) == 0 {
		result = "exhausted"
	}
	resolveDuration.With(prometheus.Labels{"result": result}).Observe(time.Since(began).Seconds())
	candidatesReturned.Observe(float64(len(candidates)))
	return candidates, nil
}

// remove drops the first candidate equal to v, keeping catalog order for
// the rest.
func remove(candidates []domain.Vehicle, v domain.Vehicle) []domain.Vehicle {
	for i, c := range candidates {
		if c == v {
			return append(candidates[:i:i], candidates[i+1:]...)
		}
	}
	return candidates
}
