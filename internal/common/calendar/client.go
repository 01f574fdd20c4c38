// Package calendar is a thin client for the Google Calendar v3 events API.
// Every call carries the signed-in user's own access token; the client never
// refreshes tokens.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	apphttp "fieldsales-workers/internal/common/http"
)

var (
	// ErrTokenExpired means the provider rejected the user's token (401/403).
	ErrTokenExpired = errors.New("CALENDAR_TOKEN_EXPIRED")
	// ErrCalendarRequest wraps any other non-2xx provider response.
	ErrCalendarRequest = errors.New("calendar request failed")
)

type EventTime struct {
	DateTime time.Time `json:"dateTime"`
	Date     string    `json:"date,omitempty"` // all-day events
	TimeZone string    `json:"timeZone,omitempty"`
}

type Attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

type Event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Status      string     `json:"status,omitempty"`
}

type eventList struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
}

type Client struct {
	baseURL string
	http    *apphttp.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    apphttp.NewClient(timeout),
	}
}

func (c *Client) eventsURL(calendarID string) string {
	if calendarID == "" {
		calendarID = "primary"
	}
	return fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(calendarID))
}

// ListEvents returns single (expanded) events between from and to ordered by start time.
func (c *Client) ListEvents(ctx context.Context, token, calendarID string, from, to time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("timeMin", from.UTC().Format(time.RFC3339))
	q.Set("timeMax", to.UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "250")

	var events []Event
	for {
		var page eventList
		if err := c.do(ctx, token, http.MethodGet, c.eventsURL(calendarID)+"?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			break
		}
		q.Set("pageToken", page.NextPageToken)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.DateTime.Before(events[j].Start.DateTime)
	})
	return events, nil
}

// CreateEvent inserts ev and returns the stored event. Attendees are notified.
func (c *Client) CreateEvent(ctx context.Context, token, calendarID string, ev Event) (*Event, error) {
	var created Event
	endpoint := c.eventsURL(calendarID) + "?sendUpdates=all"
	if err := c.do(ctx, token, http.MethodPost, endpoint, ev, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteEvent removes an event. Deleting an already-gone event (404/410) succeeds.
func (c *Client) DeleteEvent(ctx context.Context, token, calendarID, eventID string) error {
	endpoint := c.eventsURL(calendarID) + "/" + url.PathEscape(eventID)
	err := c.do(ctx, token, http.MethodDelete, endpoint, nil, nil)
	var se *apphttp.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone) {
		return nil
	}
	return err
}

// WithAttendee returns ev with email added to its attendees unless already present.
func WithAttendee(ev Event, email string) Event {
	email = strings.TrimSpace(email)
	if email == "" {
		return ev
	}
	for _, a := range ev.Attendees {
		if strings.EqualFold(a.Email, email) {
			return ev
		}
	}
	ev.Attendees = append(append([]Attendee(nil), ev.Attendees...), Attendee{Email: email})
	return ev
}

func (c *Client) do(ctx context.Context, token, method, endpoint string, body, out interface{}) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: no provider token", ErrTokenExpired)
	}
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	err := c.http.DoJSON(ctx, method, endpoint, header, body, out)
	if err == nil {
		return nil
	}

	var se *apphttp.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: status %d", ErrTokenExpired, se.StatusCode)
		}
		return fmt.Errorf("%w: %w", ErrCalendarRequest, se)
	}
	return fmt.Errorf("%w: %w", ErrCalendarRequest, err)
}
