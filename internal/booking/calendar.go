package booking

import (
	"fmt"
	"net/url"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// CalendarLink is a Scheduler for hosted scheduling pages that accept
// prefill data as query parameters. Each service maps to its own event
// page under BaseURL.
type CalendarLink struct {
	BaseURL string
	// Events maps a service to its event path; services without an entry use the service ID
	Events map[types.ServiceID]string
}

// Link implements Scheduler
func (c CalendarLink) Link(service types.Service, contact types.ContactInfo) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid scheduling base URL %q", c.BaseURL)
	}

	event := string(service.ID)
	if path, ok := c.Events[service.ID]; ok && path != "" {
		event = path
	}
	link := base.JoinPath(event)

	q := link.Query()
	q.Set("name", contact.Name)
	q.Set("email", contact.Email)
	q.Set("a1", contact.Phone)
	link.RawQuery = q.Encode()

	return link.String(), nil
}
