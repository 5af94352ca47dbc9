package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/example/eurent/internal/booking/domain"
)

// MemoryFleetCatalog holds the vehicle inventory. Catalog order is the
// de facto selection priority downstream, so it is preserved exactly.
type MemoryFleetCatalog struct {
	mu       sync.RWMutex
	vehicles []domain.Vehicle
}

// NewMemoryFleetCatalog constructs an empty catalog.
func NewMemoryFleetCatalog() *MemoryFleetCatalog {
	return &MemoryFleetCatalog{}
}

// LoadCSV reads vehicles from a model,plate,category,fee file. The first
// line is a header and is skipped. Category strings are accepted as-is;
// they are validated against the recognized set only at booking time.
func (c *MemoryFleetCatalog) LoadCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open fleet file: %w", err)
	}
	defer f.Close()
	return c.loadCSV(f)
}

func (c *MemoryFleetCatalog) loadCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read fleet file: %w", err)
	}
	loaded := 0
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) < 4 {
			return loaded, fmt.Errorf("fleet file line %d: expected 4 fields, got %d", i+1, len(rec))
		}
		fee, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return loaded, fmt.Errorf("fleet file line %d: fee: %w", i+1, err)
		}
		v := domain.Vehicle{
			Model:    strings.TrimSpace(rec[0]),
			Plate:    strings.TrimSpace(rec[1]),
			Category: strings.TrimSpace(rec[2]),
			DailyFee: fee,
		}
		if err := c.Add(context.Background(), v); err == nil {
			loaded++
		}
	}
	return loaded, nil
}

// Add appends a vehicle, rejecting exact duplicates.
func (c *MemoryFleetCatalog) Add(_ context.Context, v domain.Vehicle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.vehicles {
		if existing == v {
			return domain.ErrDuplicateVehicle
		}
	}
	c.vehicles = append(c.vehicles, v)
	return nil
}

// ListByCategory returns vehicles of the category in catalog order.
func (c *MemoryFleetCatalog) ListByCategory(_ context.Context, category string) ([]domain.Vehicle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Vehicle
	for _, v := range c.vehicles {
		if v.Category == category {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListByModel returns vehicles matching the model name.
func (c *MemoryFleetCatalog) ListByModel(_ context.Context, model string) ([]domain.Vehicle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Vehicle
	for _, v := range c.vehicles {
		if v.Model == model {
			out = append(out, v)
		}
	}
	return out, nil
}

// List returns the whole catalog in order.
func (c *MemoryFleetCatalog) List(_ context.Context) ([]domain.Vehicle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Vehicle(nil), c.vehicles...), nil
}
