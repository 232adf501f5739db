package booking

import (
	"strconv"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// ExpectedPayment is what a checkout session must have been opened for to
// be redeemed. Bookings leave Pack and Credits empty; credit purchases
// leave Service empty.
type ExpectedPayment struct {
	Purpose     Purpose
	VisitorID   string
	Service     types.ServiceID
	Pack        types.CreditPackID
	Credits     int
	AmountCents int64
}

// ForService is the payment expected for booking svc
func ForService(visitorID string, svc types.Service) ExpectedPayment {
	return ExpectedPayment{
		Purpose:     PurposeBooking,
		VisitorID:   visitorID,
		Service:     svc.ID,
		AmountCents: svc.PriceCents,
	}
}

// ForCreditPack is the payment expected for buying pack
func ForCreditPack(visitorID string, pack types.CreditPack) ExpectedPayment {
	return ExpectedPayment{
		Purpose:     PurposeCredits,
		VisitorID:   visitorID,
		Pack:        pack.ID,
		Credits:     pack.Credits,
		AmountCents: pack.PriceCents,
	}
}

// Verify checks that the session is paid and was opened for want
func (d SessionDetails) Verify(want ExpectedPayment) error {
	if !d.Paid {
		return &PaymentError{SessionID: d.ID, Status: d.Status}
	}

	checks := []struct {
		field     string
		want, got string
	}{
		{"purpose", string(want.Purpose), string(d.Purpose)},
		{"visitor", want.VisitorID, d.VisitorID},
		{"service", string(want.Service), string(d.Service)},
		{"credit pack", string(want.Pack), string(d.Pack)},
		{"credits", strconv.Itoa(want.Credits), strconv.Itoa(d.Credits)},
		{"amount", strconv.FormatInt(want.AmountCents, 10), strconv.FormatInt(d.AmountCents, 10)},
	}
	for _, c := range checks {
		if c.want != c.got {
			return &PaymentMismatchError{SessionID: d.ID, Field: c.field, Want: c.want, Got: c.got}
		}
	}
	return nil
}
