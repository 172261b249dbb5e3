package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a customer identified by phone.
type Client struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	Name        string     `json:"name"`
	Notes       string     `json:"notes,omitempty"`
	TotalVisits int        `json:"total_visits"`
	CreatedAt   time.Time  `json:"created_at"`
	LastVisit   *time.Time `json:"last_visit,omitempty"`
}

// NewClient builds a client record for a first booking.
func NewClient(phone, name string, now time.Time) *Client {
	return &Client{
		ID:        "cli_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		Phone:     phone,
		Name:      name,
		CreatedAt: now,
	}
}

// NormalizePhone keeps only the digits of a phone or sender identity.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
