package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

func TestSessionDetails_Verify(t *testing.T) {
	pack, _ := types.LookupCreditPack(types.CreditPackFive)
	creditSession := SessionDetails{
		ID:          "cs_credits",
		Paid:        true,
		Purpose:     PurposeCredits,
		VisitorID:   visitor,
		Pack:        pack.ID,
		Credits:     pack.Credits,
		AmountCents: pack.PriceCents,
	}

	assert.NoError(t, creditSession.Verify(ForCreditPack(visitor, pack)))

	tests := []struct {
		name   string
		modify func(*SessionDetails)
		field  string
	}{
		{name: "more credits than paid for", modify: func(d *SessionDetails) { d.Credits = 100 }, field: "credits"},
		{name: "other pack", modify: func(d *SessionDetails) { d.Pack = types.CreditPackTen }, field: "credit pack"},
		{name: "booking payment", modify: func(d *SessionDetails) {
			d.Purpose, d.Pack, d.Credits, d.Service = PurposeBooking, "", 0, types.ServiceConsult
		}, field: "purpose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := creditSession
			tt.modify(&d)

			var mismatch *PaymentMismatchError
			require.ErrorAs(t, d.Verify(ForCreditPack(visitor, pack)), &mismatch)
			assert.Equal(t, tt.field, mismatch.Field)
			assert.Equal(t, "cs_credits", mismatch.SessionID)
		})
	}

	t.Run("unpaid is checked first", func(t *testing.T) {
		d := SessionDetails{ID: "cs_open", Status: "unpaid"}
		var payErr *PaymentError
		require.ErrorAs(t, d.Verify(ForCreditPack(visitor, pack)), &payErr)
		assert.Equal(t, "unpaid", payErr.Status)
	})
}
