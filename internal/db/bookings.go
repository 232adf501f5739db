package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
	"github.com/google/uuid"
)

// DuplicateBookingError is returned when a payment session already has a
// completed booking
type DuplicateBookingError struct {
	PaymentSessionID string
}

func (e *DuplicateBookingError) Error() string {
	return fmt.Sprintf("payment session %s already has a booking", e.PaymentSessionID)
}

// SaveBooking stores a completed booking record. A second record for the
// same payment session is rejected with a *DuplicateBookingError.
func (db *DB) SaveBooking(ctx context.Context, rec types.BookingRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid booking id %q: %w", rec.ID, err)
	}

	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal booking details: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO bookings (id, visitor_id, name, email, phone, service, price_cents, payment_session_id, details, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (payment_session_id) DO NOTHING`,
		id, rec.VisitorID, rec.Contact.Name, rec.Contact.Email, rec.Contact.Phone,
		string(rec.Service), rec.PriceCents, rec.PaymentSessionID, details, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &DuplicateBookingError{PaymentSessionID: rec.PaymentSessionID}
	}
	return nil
}

// HasBooking reports whether a booking was completed with paymentSessionID
func (db *DB) HasBooking(ctx context.Context, paymentSessionID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE payment_session_id = $1)`,
		paymentSessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up booking: %w", err)
	}
	return exists, nil
}

// BookingFilters holds optional filters for listing bookings
type BookingFilters struct {
	Service string
	Email   string
	Limit   int
}

// ListBookings retrieves completed bookings, newest first
func (db *DB) ListBookings(ctx context.Context, filters BookingFilters) ([]types.BookingRecord, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, visitor_id, name, email, phone, service, price_cents, payment_session_id, details, completed_at
		FROM bookings WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Service != "" {
		query += fmt.Sprintf(" AND service = $%d", argNum)
		args = append(args, filters.Service)
		argNum++
	}
	if filters.Email != "" {
		query += fmt.Sprintf(" AND email ILIKE $%d", argNum)
		args = append(args, "%"+filters.Email+"%")
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY completed_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []types.BookingRecord
	for rows.Next() {
		var (
			rec     types.BookingRecord
			id      uuid.UUID
			service string
			details []byte
		)
		if err := rows.Scan(&id, &rec.VisitorID, &rec.Contact.Name, &rec.Contact.Email, &rec.Contact.Phone,
			&service, &rec.PriceCents, &rec.PaymentSessionID, &details, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		rec.ID = id.String()
		rec.Service = types.ServiceID(service)
		if svc, ok := types.LookupService(rec.Service); ok {
			rec.ServiceName = svc.Name
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, fmt.Errorf("failed to decode booking details: %w", err)
			}
		}
		bookings = append(bookings, rec)
	}
	return bookings, rows.Err()
}
