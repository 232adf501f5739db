package booking

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/db"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// defaultListLimit matches db.ListBookings
const defaultListLimit = 50

// RecordLister lists completed bookings for the admin view. *db.DB and
// *MemoryRecords implement it.
type RecordLister interface {
	RecordStore
	ListBookings(ctx context.Context, filters db.BookingFilters) ([]types.BookingRecord, error)
}

var (
	_ RecordLister = (*db.DB)(nil)
	_ RecordLister = (*MemoryRecords)(nil)
)

// MemoryRecords keeps completed bookings in process. It is used when no
// database is configured.
type MemoryRecords struct {
	mu      sync.RWMutex
	records []types.BookingRecord
	seen    map[string]bool
}

// NewMemoryRecords creates an empty record store
func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{seen: make(map[string]bool)}
}

// SaveBooking stores rec. A second record for the same payment session is
// rejected with a *db.DuplicateBookingError.
func (m *MemoryRecords) SaveBooking(_ context.Context, rec types.BookingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[rec.PaymentSessionID] {
		return &db.DuplicateBookingError{PaymentSessionID: rec.PaymentSessionID}
	}
	m.seen[rec.PaymentSessionID] = true
	m.records = append(m.records, rec)
	return nil
}

// HasBooking reports whether paymentSessionID completed a booking
func (m *MemoryRecords) HasBooking(_ context.Context, paymentSessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seen[paymentSessionID], nil
}

// ListBookings returns matching records, newest first
func (m *MemoryRecords) ListBookings(_ context.Context, filters db.BookingFilters) ([]types.BookingRecord, error) {
	if filters.Limit == 0 {
		filters.Limit = defaultListLimit
	}

	m.mu.RLock()
	var out []types.BookingRecord
	for _, rec := range m.records {
		if filters.Service != "" && string(rec.Service) != filters.Service {
			continue
		}
		if filters.Email != "" && !strings.Contains(strings.ToLower(rec.Contact.Email), strings.ToLower(filters.Email)) {
			continue
		}
		out = append(out, rec)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}
