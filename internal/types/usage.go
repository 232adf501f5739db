package types

import "time"

// UsageData is the persisted optimizer allowance for one visitor
type UsageData struct {
	FreeUsed    bool       `json:"free_used"`
	FreeUsedAt  *time.Time `json:"free_used_at,omitempty"`
	PaidCredits int        `json:"paid_credits"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	TotalUses   int        `json:"total_uses"`
}

// UsageDecision is the answer to "may the optimizer run now?"
type UsageDecision struct {
	Allowed         bool `json:"allowed"`
	RequiresPayment bool `json:"requires_payment,omitempty"`
	FreeRemaining   int  `json:"free_remaining"`
	PaidCredits     int  `json:"paid_credits"`
}

// CreditPackID identifies a purchasable bundle of optimizer credits
type CreditPackID string

// Purchasable credit packs
const (
	CreditPackSingle CreditPackID = "credits-1"
	CreditPackFive   CreditPackID = "credits-5"
	CreditPackTen    CreditPackID = "credits-10"
)

// CreditPack is an immutable credit catalog entry
type CreditPack struct {
	ID         CreditPackID `json:"id"`
	Name       string       `json:"name"`
	Credits    int          `json:"credits"`
	PriceCents int64        `json:"price_cents"`
}

// DisplayPrice formats the price for humans, e.g. "$39"
func (p CreditPack) DisplayPrice() string {
	return formatCents(p.PriceCents)
}

var creditPacks = []CreditPack{
	{ID: CreditPackSingle, Name: "1 Optimizer Credit", Credits: 1, PriceCents: 900},
	{ID: CreditPackFive, Name: "5 Optimizer Credits", Credits: 5, PriceCents: 3900},
	{ID: CreditPackTen, Name: "10 Optimizer Credits", Credits: 10, PriceCents: 6900},
}

// CreditPacks returns the credit catalog, smallest first
func CreditPacks() []CreditPack {
	return append([]CreditPack(nil), creditPacks...)
}

// LookupCreditPack returns the credit pack for id
func LookupCreditPack(id CreditPackID) (CreditPack, bool) {
	for _, p := range creditPacks {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPack{}, false
}
