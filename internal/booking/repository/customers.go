package repository

import (
	"context"
	"sync"

	"github.com/example/eurent/internal/booking/domain"
)

// MemoryCustomerDirectory holds customer records. Ids are assigned as
// max-existing+1; a (name, phone) pair identifies a customer uniquely.
type MemoryCustomerDirectory struct {
	mu        sync.RWMutex
	customers []domain.Customer
}

// NewMemoryCustomerDirectory constructs a directory preloaded with the
// standard seed customers.
func NewMemoryCustomerDirectory() *MemoryCustomerDirectory {
	return &MemoryCustomerDirectory{customers: []domain.Customer{
		{ID: 1, Name: "Harvey Specter", Phone: "0123456789"},
		{ID: 2, Name: "Mike Ross", Phone: "0112345678"},
		{ID: 3, Name: "Louis Litt", Phone: "0111234567"},
		{ID: 4, Name: "Jessica Pearson", Phone: "0111123456"},
		{ID: 5, Name: "Robert Zane", Phone: "0111112345"},
	}}
}

// FindByName returns the first customer with an exact name match.
func (d *MemoryCustomerDirectory) FindByName(_ context.Context, name string) (domain.Customer, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if c.Name == name {
			return c, true, nil
		}
	}
	return domain.Customer{}, false, nil
}

// Add registers a customer with a fresh id, rejecting (name, phone)
// duplicates.
func (d *MemoryCustomerDirectory) Add(_ context.Context, name, phone string) (domain.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	maxID := 0
	for _, c := range d.customers {
		if c.Name == name && c.Phone == phone {
			return domain.Customer{}, domain.ErrDuplicateCustomer
		}
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	customer := domain.Customer{ID: maxID + 1, Name: name, Phone: phone}
	d.customers = append(d.customers, customer)
	return customer, nil
}

// List returns all customers in registration order.
func (d *MemoryCustomerDirectory) List(_ context.Context) ([]domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.Customer(nil), d.customers...), nil
}

// IncrementBookings bumps a customer's booking counter.
func (d *MemoryCustomerDirectory) IncrementBookings(_ context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.customers {
		if d.customers[i].ID == id {
			d.customers[i].BookingCount++
			return nil
		}
	}
	return domain.ErrCustomerNotFound
}
