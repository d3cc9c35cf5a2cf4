package domain

import "time"

// Client is a person or entity the practice tracks documents and tax
// returns for. The social security number is stored verbatim as an
// opaque string; no normalization is applied to any field.
type Client struct {
	ID                   int64
	FirstName            string
	LastName             string
	SocialSecurityNumber string
	Address              string
	PhoneNumber          string
	Email                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ClientInput carries the caller-supplied fields for creating a client.
// The id and timestamps are assigned by the store.
type ClientInput struct {
	FirstName            string
	LastName             string
	SocialSecurityNumber string
	Address              string
	PhoneNumber          string
	Email                string
}
