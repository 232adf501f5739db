// Package usage tracks the optimizer allowance of a visitor: one free run,
// then paid credits.
package usage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// FreeUses is the number of optimizer runs granted without payment
const FreeUses = 1

// NewStore returns the persisted usage record for one visitor
func NewStore(backend store.Backend, visitorID string) store.Store[types.UsageData] {
	return store.NewJSON[types.UsageData](backend, store.Key("usage", visitorID))
}

// Tracker reads and updates one visitor's usage record
type Tracker struct {
	store store.Store[types.UsageData]
	now   func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source used for usage timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker over s
func NewTracker(s store.Store[types.UsageData], opts ...Option) *Tracker {
	t := &Tracker{store: s, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Data returns the current record, or defaults when none is stored
func (t *Tracker) Data(ctx context.Context) (types.UsageData, error) {
	data, _, err := t.store.Load(ctx)
	if err != nil {
		return types.UsageData{}, fmt.Errorf("failed to load usage: %w", err)
	}
	if data.PaidCredits < 0 {
		data.PaidCredits = 0
	}
	return data, nil
}

// CanUse reports whether the optimizer may run now
func (t *Tracker) CanUse(ctx context.Context) (types.UsageDecision, error) {
	data, err := t.Data(ctx)
	if err != nil {
		return types.UsageDecision{}, err
	}
	return Decide(data), nil
}

// Decide computes the usage decision for a record
func Decide(data types.UsageData) types.UsageDecision {
	freeRemaining := FreeUses
	if data.FreeUsed {
		freeRemaining = 0
	}
	allowed := freeRemaining > 0 || data.PaidCredits > 0
	return types.UsageDecision{
		Allowed:         allowed,
		RequiresPayment: !allowed,
		FreeRemaining:   freeRemaining,
		PaidCredits:     data.PaidCredits,
	}
}

// RecordUse consumes the free run if still available, otherwise one paid
// credit. Total uses and the last-used timestamp are always updated.
func (t *Tracker) RecordUse(ctx context.Context) (types.UsageData, error) {
	data, err := t.Data(ctx)
	if err != nil {
		return types.UsageData{}, err
	}

	now := t.now().UTC()
	switch {
	case !data.FreeUsed:
		data.FreeUsed = true
		data.FreeUsedAt = &now
	case data.PaidCredits > 0:
		data.PaidCredits--
	default:
		log.Printf("[usage] recording use with no allowance left")
	}
	data.TotalUses++
	data.LastUsedAt = &now

	if err := t.store.Save(ctx, data); err != nil {
		return types.UsageData{}, fmt.Errorf("failed to save usage: %w", err)
	}
	return data, nil
}

// AddCredits adds n paid credits after a confirmed purchase
func (t *Tracker) AddCredits(ctx context.Context, n int) (types.UsageData, error) {
	if n < 1 {
		return types.UsageData{}, &InvalidCreditsError{Count: n}
	}

	data, err := t.Data(ctx)
	if err != nil {
		return types.UsageData{}, err
	}
	data.PaidCredits += n

	if err := t.store.Save(ctx, data); err != nil {
		return types.UsageData{}, fmt.Errorf("failed to save usage: %w", err)
	}
	return data, nil
}

// Reset clears all tracked usage
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	return nil
}

// InvalidCreditsError is returned when a non-positive credit count is added
type InvalidCreditsError struct {
	Count int
}

func (e *InvalidCreditsError) Error() string {
	return fmt.Sprintf("credit count must be at least 1, got %d", e.Count)
}
