// Package checkout talks to a hosted checkout provider using the Stripe
// Checkout Sessions REST API shape.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// DefaultBaseURL is the provider API root
const DefaultBaseURL = "https://api.stripe.com"

// DefaultTimeout bounds each provider call
const DefaultTimeout = 15 * time.Second

// sessionIDPlaceholder is replaced by the provider with the real session ID on redirect
const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Config holds provider credentials and redirect targets
type Config struct {
	BaseURL    string
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Currency   string
	Timeout    time.Duration
}

// Client is a booking.CheckoutProvider over HTTP
type Client struct {
	cfg  Config
	http *http.Client
}

var _ booking.CheckoutProvider = (*Client)(nil)

// New creates a checkout client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// session is the subset of the provider's session object we read
type session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Error is a provider failure
type Error struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("checkout provider: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("checkout provider: %s (HTTP %d)", e.Message, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CreateSession implements booking.CheckoutProvider. The purpose, visitor
// and purchased item are written to the session metadata so Session can
// report what the payment was for.
func (c *Client) CreateSession(ctx context.Context, req booking.CheckoutRequest) (booking.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", withSessionPlaceholder(c.cfg.SuccessURL))
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("client_reference_id", req.VisitorID)
	if req.Contact.Email != "" {
		form.Set("customer_email", req.Contact.Email)
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", c.cfg.Currency)
	form.Set("metadata[purpose]", string(req.Purpose))
	form.Set("metadata[visitor_id]", req.VisitorID)

	switch req.Purpose {
	case booking.PurposeBooking:
		form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Service.PriceCents, 10))
		form.Set("line_items[0][price_data][product_data][name]", req.Service.Name)
		form.Set("metadata[service]", string(req.Service.ID))
		form.Set("metadata[name]", req.Contact.Name)
		form.Set("metadata[phone]", req.Contact.Phone)
	case booking.PurposeCredits:
		form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Pack.PriceCents, 10))
		form.Set("line_items[0][price_data][product_data][name]", req.Pack.Name)
		form.Set("metadata[credit_pack]", string(req.Pack.ID))
		form.Set("metadata[credits]", strconv.Itoa(req.Pack.Credits))
	default:
		return booking.CheckoutSession{}, &Error{Message: fmt.Sprintf("unknown checkout purpose %q", req.Purpose)}
	}

	var out session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()), &out); err != nil {
		return booking.CheckoutSession{}, err
	}
	if out.ID == "" || out.URL == "" {
		return booking.CheckoutSession{}, &Error{StatusCode: http.StatusOK, Message: "session response missing id or url"}
	}
	return booking.CheckoutSession{ID: out.ID, URL: out.URL}, nil
}

// Session implements booking.CheckoutProvider. Missing or malformed
// metadata is reported as empty and fails verification.
func (c *Client) Session(ctx context.Context, sessionID string) (booking.SessionDetails, error) {
	var out session
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return booking.SessionDetails{}, err
	}

	credits, _ := strconv.Atoi(out.Metadata["credits"])
	return booking.SessionDetails{
		ID:          sessionID,
		Paid:        out.PaymentStatus == "paid",
		Status:      out.PaymentStatus,
		Purpose:     booking.Purpose(out.Metadata["purpose"]),
		VisitorID:   out.Metadata["visitor_id"],
		Service:     types.ServiceID(out.Metadata["service"]),
		Pack:        types.CreditPackID(out.Metadata["credit_pack"]),
		Credits:     credits,
		AmountCents: out.AmountTotal,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return &Error{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "invalid response body", Cause: err}
	}
	return nil
}

// withSessionPlaceholder appends the session_id query parameter the return
// handler reads, unless the URL already carries the placeholder
func withSessionPlaceholder(successURL string) string {
	if successURL == "" || strings.Contains(successURL, sessionIDPlaceholder) {
		return successURL
	}
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id=" + sessionIDPlaceholder
}
