// Package booking implements the three-step booking wizard: contact and
// service selection, hosted checkout payment, then scheduling details and
// the completion record.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/db"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const (
	firstStep = types.BookingStepContact
	lastStep  = types.BookingStepSchedule
)

// Rehydrate is the load predicate for persisted booking state. Step 1
// state is never restored so a new visit never starts with a stale
// selection.
func Rehydrate(s types.BookingState) bool {
	return s.CurrentStep > firstStep
}

// NewVisitStore returns the booking store used while a visit is in
// progress. It restores whatever was saved, step 1 included; BeginVisit
// applies Rehydrate once when the visit starts.
func NewVisitStore(backend store.Backend, visitorID string) store.Store[types.BookingState] {
	return store.NewJSON[types.BookingState](backend, store.Key("booking", visitorID))
}

// BeginVisit starts a new visit for visitorID and discards saved state
// that Rehydrate would not restore
func BeginVisit(ctx context.Context, backend store.Backend, visitorID string) error {
	s := NewVisitStore(backend, visitorID)
	saved, ok, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load booking state: %w", err)
	}
	if !ok || Rehydrate(saved) {
		return nil
	}
	if err := s.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear booking state: %w", err)
	}
	return nil
}

// Deps are the collaborators used by the booking flow. Any of them may be
// nil; operations that need a missing collaborator return an error.
type Deps struct {
	Checkout  CheckoutProvider
	Scheduler Scheduler
	Relay     FormRelay
	Records   RecordStore
	Now       func() time.Time
}

// Flow is one visitor's booking wizard
type Flow struct {
	visitorID string
	store     store.Store[types.BookingState]
	deps      Deps
	state     types.BookingState
}

// Load creates a flow for visitorID, restoring persisted state when the
// store returns any
func Load(ctx context.Context, visitorID string, s store.Store[types.BookingState], deps Deps) (*Flow, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	f := &Flow{visitorID: visitorID, store: s, deps: deps, state: types.NewBookingState()}

	saved, ok, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking state: %w", err)
	}
	if ok {
		f.state = merge(saved)
	}
	return f, nil
}

// merge lays persisted state over the initial state
func merge(saved types.BookingState) types.BookingState {
	saved.CurrentStep = clamp(saved.CurrentStep)
	saved.IsProcessing = false
	if saved.Errors == nil {
		saved.Errors = map[string]string{}
	}
	return saved
}

func clamp(step int) int {
	if step < firstStep {
		return firstStep
	}
	if step > lastStep {
		return lastStep
	}
	return step
}

// State returns a copy of the current state
func (f *Flow) State() types.BookingState {
	out := f.state
	out.Errors = make(map[string]string, len(f.state.Errors))
	for k, v := range f.state.Errors {
		out.Errors[k] = v
	}
	return out
}

// VisitorID returns the visitor this flow belongs to
func (f *Flow) VisitorID() string {
	return f.visitorID
}

func (f *Flow) persist(ctx context.Context) error {
	f.state.UpdatedAt = f.deps.Now().UTC()
	saved := f.state
	saved.IsProcessing = false
	if err := f.store.Save(ctx, saved); err != nil {
		return fmt.Errorf("failed to save booking state: %w", err)
	}
	return nil
}

// UpdateContactInfo merges patch into the contact info and clears all errors
func (f *Flow) UpdateContactInfo(ctx context.Context, patch types.ContactPatch) error {
	f.state.ContactInfo = patch.Apply(f.state.ContactInfo)
	f.state.Errors = map[string]string{}
	return f.persist(ctx)
}

// SetSelectedService selects id, or clears the selection when id is nil
// or already selected
func (f *Flow) SetSelectedService(ctx context.Context, id *types.ServiceID) error {
	switch {
	case id == nil:
		f.state.SelectedService = nil
	case f.state.SelectedService != nil && *f.state.SelectedService == *id:
		f.state.SelectedService = nil
	default:
		selected := *id
		f.state.SelectedService = &selected
	}
	return f.persist(ctx)
}

// ValidateStep1 checks the contact step, writes the errors into state and
// reports whether the step is valid
func (f *Flow) ValidateStep1(ctx context.Context) (bool, error) {
	f.state.Errors = validateStep1(f.state)
	return len(f.state.Errors) == 0, f.persist(ctx)
}

// CheckStep1Valid runs the contact step checks without touching state
func (f *Flow) CheckStep1Valid() bool {
	return len(validateStep1(f.state)) == 0
}

// Next advances one step. Leaving step 1 requires a valid contact step and
// leaving step 2 requires a recorded payment session.
func (f *Flow) Next(ctx context.Context) error {
	switch f.state.CurrentStep {
	case types.BookingStepContact:
		ok, err := f.ValidateStep1(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Fields: f.State().Errors}
		}
	case types.BookingStepPayment:
		if f.state.PaymentSessionID == nil {
			return &StepError{Step: f.state.CurrentStep, Reason: "payment has not been completed"}
		}
	}
	f.state.CurrentStep = clamp(f.state.CurrentStep + 1)
	return f.persist(ctx)
}

// Prev goes back one step, stopping at step 1
func (f *Flow) Prev(ctx context.Context) error {
	f.state.CurrentStep = clamp(f.state.CurrentStep - 1)
	return f.persist(ctx)
}

// GoToStep jumps directly to step, clamped to the valid range
func (f *Flow) GoToStep(ctx context.Context, step int) error {
	f.state.CurrentStep = clamp(step)
	return f.persist(ctx)
}

// SetPaymentSessionID records the payment session; it does not change the step
func (f *Flow) SetPaymentSessionID(ctx context.Context, id *string) error {
	if id == nil {
		f.state.PaymentSessionID = nil
	} else {
		sessionID := *id
		f.state.PaymentSessionID = &sessionID
	}
	return f.persist(ctx)
}

// SetProcessing marks an in-flight operation. The flag is never persisted as true.
func (f *Flow) SetProcessing(ctx context.Context, processing bool) error {
	f.state.IsProcessing = processing
	return f.persist(ctx)
}

// ClearSavedState resets to the initial state and removes the persisted record
func (f *Flow) ClearSavedState(ctx context.Context) error {
	f.state = types.NewBookingState()
	if err := f.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear booking state: %w", err)
	}
	return nil
}

// selectedService returns the catalog entry for the current selection
func (f *Flow) selectedService() (types.Service, error) {
	if f.state.SelectedService == nil {
		return types.Service{}, &StepError{Step: f.state.CurrentStep, Reason: "no service selected"}
	}
	svc, ok := types.LookupService(*f.state.SelectedService)
	if !ok {
		return types.Service{}, &StepError{Step: f.state.CurrentStep, Reason: fmt.Sprintf("unknown service %q", *f.state.SelectedService)}
	}
	return svc, nil
}

// BeginCheckout opens a hosted checkout session for the selected service.
// The contact step must be valid. The flow moves to the payment step and
// remembers the session so the payment redirect can be confirmed.
func (f *Flow) BeginCheckout(ctx context.Context) (session CheckoutSession, err error) {
	if f.deps.Checkout == nil {
		return CheckoutSession{}, &CollaboratorError{Op: "checkout", Cause: fmt.Errorf("no checkout provider configured")}
	}

	ok, err := f.ValidateStep1(ctx)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !ok {
		return CheckoutSession{}, &ValidationError{Fields: f.State().Errors}
	}
	svc, err := f.selectedService()
	if err != nil {
		return CheckoutSession{}, err
	}

	if err := f.SetProcessing(ctx, true); err != nil {
		return CheckoutSession{}, err
	}
	defer func() {
		if perr := f.SetProcessing(ctx, false); perr != nil && err == nil {
			err = perr
		}
	}()

	session, err = f.deps.Checkout.CreateSession(ctx, CheckoutRequest{
		VisitorID: f.visitorID,
		Purpose:   PurposeBooking,
		Service:   svc,
		Contact:   f.state.ContactInfo,
	})
	if err != nil {
		log.Printf("[booking] checkout session for %s failed: %v", f.visitorID, err)
		return CheckoutSession{}, &CollaboratorError{Op: "create checkout session", Cause: err}
	}

	f.state.CheckoutSession = session.ID
	f.state.CheckoutURL = session.URL
	f.state.CurrentStep = types.BookingStepPayment
	if err := f.persist(ctx); err != nil {
		return CheckoutSession{}, err
	}
	return session, nil
}

// ConfirmPayment handles the return from the hosted checkout. The session
// must be paid, opened by this visitor for the selected service at its
// catalog price, and not already used by a completed booking. The session
// is then recorded and the flow jumps to the scheduling step.
func (f *Flow) ConfirmPayment(ctx context.Context, sessionID string) (err error) {
	if sessionID == "" {
		return &StepError{Step: f.state.CurrentStep, Reason: "missing payment session id"}
	}
	if f.deps.Checkout == nil {
		return &CollaboratorError{Op: "verify payment", Cause: fmt.Errorf("no checkout provider configured")}
	}
	svc, err := f.selectedService()
	if err != nil {
		return err
	}

	if err := f.SetProcessing(ctx, true); err != nil {
		return err
	}
	defer func() {
		if perr := f.SetProcessing(ctx, false); perr != nil && err == nil {
			err = perr
		}
	}()

	details, err := f.deps.Checkout.Session(ctx, sessionID)
	if err != nil {
		return &CollaboratorError{Op: "verify payment", Cause: err}
	}
	if err := details.Verify(ForService(f.visitorID, svc)); err != nil {
		log.Printf("[booking] rejected payment session %s for %s: %v", sessionID, f.visitorID, err)
		return err
	}

	if f.deps.Records != nil {
		used, err := f.deps.Records.HasBooking(ctx, sessionID)
		if err != nil {
			return &CollaboratorError{Op: "check booking records", Cause: err}
		}
		if used {
			return &SessionUsedError{SessionID: sessionID}
		}
	}

	if err := f.SetPaymentSessionID(ctx, &sessionID); err != nil {
		return err
	}
	return f.GoToStep(ctx, types.BookingStepSchedule)
}

// SchedulingLink returns the scheduling widget URL prefilled with the
// visitor's validated contact info
func (f *Flow) SchedulingLink() (string, error) {
	if f.deps.Scheduler == nil {
		return "", &CollaboratorError{Op: "scheduling link", Cause: fmt.Errorf("no scheduler configured")}
	}
	if fields := validateStep1(f.state); len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	svc, err := f.selectedService()
	if err != nil {
		return "", err
	}
	return f.deps.Scheduler.Link(svc, f.state.ContactInfo)
}

// Complete finishes a paid booking: it stores the completion record,
// forwards it to the form relay and clears the saved wizard state. A form
// relay failure is logged and does not fail the booking. A payment session
// that already completed a booking fails with *SessionUsedError and nothing
// is relayed.
func (f *Flow) Complete(ctx context.Context, details types.CompletionDetails) (types.BookingRecord, error) {
	if f.state.PaymentSessionID == nil {
		return types.BookingRecord{}, &StepError{Step: f.state.CurrentStep, Reason: "payment has not been completed"}
	}
	if fields := validateDetails(details); len(fields) > 0 {
		f.state.Errors = fields
		if err := f.persist(ctx); err != nil {
			return types.BookingRecord{}, err
		}
		return types.BookingRecord{}, &ValidationError{Fields: fields}
	}
	svc, err := f.selectedService()
	if err != nil {
		return types.BookingRecord{}, err
	}

	f.state.Completion = details
	rec := types.BookingRecord{
		ID:               uuid.New().String(),
		VisitorID:        f.visitorID,
		Contact:          f.state.ContactInfo,
		Service:          svc.ID,
		ServiceName:      svc.Name,
		PriceCents:       svc.PriceCents,
		PaymentSessionID: *f.state.PaymentSessionID,
		Details:          details,
		CompletedAt:      f.deps.Now().UTC(),
	}

	if f.deps.Records != nil {
		if err := f.deps.Records.SaveBooking(ctx, rec); err != nil {
			if perr := f.persist(ctx); perr != nil {
				log.Printf("[booking] failed to save state after record error: %v", perr)
			}
			var dup *db.DuplicateBookingError
			if errors.As(err, &dup) {
				return types.BookingRecord{}, &SessionUsedError{SessionID: dup.PaymentSessionID}
			}
			return types.BookingRecord{}, &CollaboratorError{Op: "save booking", Cause: err}
		}
	}

	if f.deps.Relay != nil {
		if err := f.deps.Relay.Submit(ctx, rec.RelayFields()); err != nil {
			log.Printf("[booking] form relay failed for booking %s: %v", rec.ID, err)
		}
	}

	if err := f.ClearSavedState(ctx); err != nil {
		return rec, err
	}
	log.Printf("[booking] completed booking %s (%s) for %s", rec.ID, rec.Service, f.visitorID)
	return rec, nil
}
