// Package types provides type definitions for structured data used throughout the booking and optimizer flows.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Booking wizard steps
const (
	BookingStepContact  = 1
	BookingStepPayment  = 2
	BookingStepSchedule = 3
)

// ContactInfo holds the visitor's contact details collected in booking step 1
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ContactPatch is a partial ContactInfo update; nil fields are left untouched
type ContactPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Apply shallow-merges the patch into c and returns the result
func (p ContactPatch) Apply(c ContactInfo) ContactInfo {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	return c
}

// ServiceID identifies a bookable coaching service
type ServiceID string

// Bookable services
const (
	ServiceConsult     ServiceID = "consult"
	ServiceResume      ServiceID = "resume"
	ServiceAccelerator ServiceID = "accelerator"
	ServiceMentorship  ServiceID = "mentorship"
)

// Service is an immutable catalog entry
type Service struct {
	ID          ServiceID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
}

// DisplayPrice formats the price for humans, e.g. "$1,497"
func (s Service) DisplayPrice() string {
	return formatCents(s.PriceCents)
}

func formatCents(amount int64) string {
	dollars := amount / 100
	cents := amount % 100
	if cents == 0 {
		return "$" + humanize.Comma(dollars)
	}
	return fmt.Sprintf("$%s.%02d", humanize.Comma(dollars), cents)
}

var catalog = map[ServiceID]Service{
	ServiceConsult: {
		ID:          ServiceConsult,
		Name:        "Career Strategy Consult",
		Description: "A focused 60-minute session to map your next career move.",
		PriceCents:  19700,
	},
	ServiceResume: {
		ID:          ServiceResume,
		Name:        "Resume Transformation",
		Description: "A full resume rewrite targeted to the roles you want.",
		PriceCents:  49700,
	},
	ServiceAccelerator: {
		ID:          ServiceAccelerator,
		Name:        "Job Search Accelerator",
		Description: "Resume, LinkedIn and interview prep over four weeks.",
		PriceCents:  149700,
	},
	ServiceMentorship: {
		ID:          ServiceMentorship,
		Name:        "1:1 Mentorship",
		Description: "Three months of weekly coaching through your search.",
		PriceCents:  299700,
	},
}

// catalogOrder is the display order of the catalog
var catalogOrder = []ServiceID{ServiceConsult, ServiceResume, ServiceAccelerator, ServiceMentorship}

// LookupService returns the catalog entry for id
func LookupService(id ServiceID) (Service, bool) {
	svc, ok := catalog[id]
	return svc, ok
}

// Services returns the full catalog in display order
func Services() []Service {
	out := make([]Service, 0, len(catalogOrder))
	for _, id := range catalogOrder {
		out = append(out, catalog[id])
	}
	return out
}

// Valid reports whether id is a known service
func (id ServiceID) Valid() bool {
	_, ok := catalog[id]
	return ok
}

// CompletionDetails holds the post-payment scheduling and upload details from step 3
type CompletionDetails struct {
	PreferredTimes string `json:"preferred_times,omitempty" validate:"max=500"`
	ResumeURL      string `json:"resume_url,omitempty" validate:"omitempty,url"`
	LinkedInURL    string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	Goals          string `json:"goals,omitempty" validate:"max=2000"`
	Notes          string `json:"notes,omitempty" validate:"max=2000"`
}

// BookingState is the persisted state of the booking wizard
type BookingState struct {
	CurrentStep      int               `json:"current_step"`
	ContactInfo      ContactInfo       `json:"contact_info"`
	SelectedService  *ServiceID        `json:"selected_service"`
	PaymentSessionID *string           `json:"payment_session_id"`
	CheckoutSession  string            `json:"checkout_session,omitempty"`
	CheckoutURL      string            `json:"checkout_url,omitempty"`
	Completion       CompletionDetails `json:"completion"`
	IsProcessing     bool              `json:"is_processing"`
	Errors           map[string]string `json:"errors"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewBookingState returns the initial booking state
func NewBookingState() BookingState {
	return BookingState{
		CurrentStep: BookingStepContact,
		Errors:      map[string]string{},
	}
}

// BookingRecord is the completion record written once a paid booking is finished
type BookingRecord struct {
	ID               string            `json:"id"`
	VisitorID        string            `json:"visitor_id"`
	Contact          ContactInfo       `json:"contact"`
	Service          ServiceID         `json:"service"`
	ServiceName      string            `json:"service_name"`
	PriceCents       int64             `json:"price_cents"`
	PaymentSessionID string            `json:"payment_session_id"`
	Details          CompletionDetails `json:"details"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// RelayFields flattens the record into the form-relay payload
func (r BookingRecord) RelayFields() map[string]string {
	return map[string]string{
		"booking_id":         r.ID,
		"name":               r.Contact.Name,
		"email":              r.Contact.Email,
		"phone":              r.Contact.Phone,
		"service":            string(r.Service),
		"service_name":       r.ServiceName,
		"amount":             fmt.Sprintf("%.2f", float64(r.PriceCents)/100),
		"payment_session_id": r.PaymentSessionID,
		"preferred_times":    r.Details.PreferredTimes,
		"resume_url":         r.Details.ResumeURL,
		"linkedin_url":       r.Details.LinkedInURL,
		"goals":              r.Details.Goals,
		"notes":              r.Details.Notes,
		"completed_at":       r.CompletedAt.UTC().Format(time.RFC3339),
	}
}
