package booking

import (
	"context"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// Purpose records what a checkout session pays for
type Purpose string

// Checkout purposes
const (
	PurposeBooking Purpose = "booking"
	PurposeCredits Purpose = "credits"
)

// CheckoutRequest is what the payment provider needs to open a hosted
// checkout. Service is set for bookings and Pack for credit purchases.
type CheckoutRequest struct {
	VisitorID string
	Purpose   Purpose
	Service   types.Service
	Pack      types.CreditPack
	Contact   types.ContactInfo
}

// CheckoutSession is an opened hosted checkout
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionDetails is the provider's record of a checkout session, including
// the metadata written when it was opened
type SessionDetails struct {
	ID          string
	Paid        bool
	Status      string
	Purpose     Purpose
	VisitorID   string
	Service     types.ServiceID
	Pack        types.CreditPackID
	Credits     int
	AmountCents int64
}

// CheckoutProvider creates and inspects hosted checkout sessions.
// Session IDs are opaque to the booking flow.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	Session(ctx context.Context, sessionID string) (SessionDetails, error)
}

// Scheduler builds a prefilled link into the hosted scheduling widget
type Scheduler interface {
	Link(service types.Service, contact types.ContactInfo) (string, error)
}

// FormRelay forwards a flat completion record to the notification service
type FormRelay interface {
	Submit(ctx context.Context, fields map[string]string) error
}

// RecordStore keeps completed bookings. SaveBooking returns a
// *db.DuplicateBookingError when the payment session already has a record.
type RecordStore interface {
	SaveBooking(ctx context.Context, rec types.BookingRecord) error
	HasBooking(ctx context.Context, paymentSessionID string) (bool, error)
}
