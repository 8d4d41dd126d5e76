// Package booking looks up reservations in booking-service on behalf of the
// caller, so checkout only charges for the payer's own live hold.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound means booking-service has no live reservation with that id for
// the caller.
var ErrNotFound = errors.New("booking not found")

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

type Booking struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	CourtID string `json:"court_id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Status  string `json:"status"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Lookup fetches reservation id with the caller's Authorization header, so
// booking-service applies its own owner check.
func (c *Client) Lookup(ctx context.Context, authorization, id string) (*Booking, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/bookings/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("build booking request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("booking request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("booking-service error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var b Booking
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode booking: %w", err)
	}
	return &b, nil
}
