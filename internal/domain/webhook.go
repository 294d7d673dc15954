package domain

import (
	"time"
)

// WebhookEndpoint is a registered receiver for finalized decisions. The
// optional filter is a CEL expression over the decision event; an empty
// filter matches everything.
type WebhookEndpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Filter    string    `json:"filter,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WebhookRequest is the API payload for registering an endpoint.
type WebhookRequest struct {
	URL     string `json:"url"`
	Secret  string `json:"secret,omitempty"`
	Filter  string `json:"filter,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Validate checks the request for required fields.
func (r *WebhookRequest) Validate() error {
	if r.URL == "" {
		return NewValidationError("url", "required")
	}
	return nil
}

// ToEndpoint converts a validated request into a WebhookEndpoint.
func (r *WebhookRequest) ToEndpoint(id string, now time.Time) *WebhookEndpoint {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &WebhookEndpoint{
		ID:        id,
		URL:       r.URL,
		Secret:    r.Secret,
		Filter:    r.Filter,
		Enabled:   enabled,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// WebhookDelivery records one delivery attempt chain for an endpoint.
type WebhookDelivery struct {
	ID          string     `json:"id"`
	EndpointID  string     `json:"endpointId"`
	RequestID   string     `json:"requestId"`
	StatusCode  int        `json:"statusCode"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
