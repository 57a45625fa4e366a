// Package remote talks to the optional profile backend that mirrors a
// user's prayer settings across devices.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waqtapp/waqt/pkg/prayer"
)

var (
	// ErrDisabled is returned by every call on a client without a base URL.
	ErrDisabled = errors.New("remote: no backend configured")
	// ErrNoUserID is returned when a create response carries no id.
	ErrNoUserID = errors.New("remote: backend returned no userId")
)

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: backend returned %d", e.Code)
	}
	return fmt.Sprintf("remote: backend returned %d: %s", e.Code, e.Message)
}

// NewUser is the payload of POST /user/create.
type NewUser struct {
	Name     string             `json:"name"`
	Email    string             `json:"email,omitempty"`
	Location prayer.Coordinates `json:"location"`
}

// SettingsUpdate is a partial settings change. Nil fields are not sent.
type SettingsUpdate struct {
	Location       *prayer.Coordinates
	JuristicMethod *prayer.JuristicMethod
	PrayerOffsets  prayer.Offsets
}

type offsetEntry struct {
	Name   prayer.ID `json:"name"`
	Offset int       `json:"offset"`
}

// MarshalJSON encodes offsets the way the backend stores them, as an
// ordered list of {name, offset}.
func (u SettingsUpdate) MarshalJSON() ([]byte, error) {
	body := struct {
		Location       *prayer.Coordinates    `json:"location,omitempty"`
		JuristicMethod *prayer.JuristicMethod `json:"juristicMethod,omitempty"`
		PrayerOffsets  []offsetEntry          `json:"prayerOffsets,omitempty"`
	}{Location: u.Location, JuristicMethod: u.JuristicMethod}
	if u.PrayerOffsets != nil {
		for _, id := range prayer.Sequence {
			body.PrayerOffsets = append(body.PrayerOffsets, offsetEntry{Name: id, Offset: u.PrayerOffsets[id]})
		}
	}
	return json.Marshal(body)
}

// Empty reports whether u would change nothing.
func (u SettingsUpdate) Empty() bool {
	return u.Location == nil && u.JuristicMethod == nil && u.PrayerOffsets == nil
}

// Client is a JSON client for the profile backend.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for baseURL. An empty baseURL yields a disabled
// client whose calls return ErrDisabled.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	c := &Client{http: &http.Client{Timeout: timeout}}
	if baseURL == "" {
		return c, nil
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}
	c.base = u
	return c, nil
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool { return c != nil && c.base != nil }

// CreateUser registers a profile and returns its backend id.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/create", nil, u, &resp); err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", ErrNoUserID
	}
	return resp.UserID, nil
}

// UpdateSettings applies a partial settings change to userID.
func (c *Client) UpdateSettings(ctx context.Context, userID string, u SettingsUpdate) error {
	q := url.Values{"userId": {userID}}
	return c.do(ctx, http.MethodPut, "/user/settings", q, u, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out interface{}) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	u := *c.base
	u.Path += path
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &msg)
		return &StatusError{Code: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}
