package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Link precedence values for a contact.
const (
	PrecedencePrimary   = "primary"
	PrecedenceSecondary = "secondary"
)

// Contact represents a customer contact row.
// A primary contact has LinkedID nil; a secondary contact's LinkedID always
// points at its cluster's primary, never at another secondary.
type Contact struct {
	ID             int64      `json:"id"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	Email          *string    `json:"email,omitempty"`
	LinkedID       *int64     `json:"linkedId,omitempty"`
	LinkPrecedence string     `json:"linkPrecedence"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// IsPrimary reports whether the contact is its cluster's primary.
func (c *Contact) IsPrimary() bool {
	return c.LinkPrecedence == PrecedencePrimary
}

// PrimaryID resolves the id of the contact's cluster primary: itself for a
// primary, LinkedID for a secondary.
func (c *Contact) PrimaryID() int64 {
	if c.LinkedID != nil {
		return *c.LinkedID
	}
	return c.ID
}

// FlexString decodes a JSON string or number into a string. Clients send
// phone numbers both quoted and bare; both forms must normalize identically.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	return fmt.Errorf("value %s is neither string nor number", data)
}

// IdentifyRequest represents the incoming request body.
type IdentifyRequest struct {
	Email       *string     `json:"email"`
	PhoneNumber *FlexString `json:"phoneNumber"`
}

// PhoneValue returns the raw phone as a plain string, or nil when the field
// was absent or null.
func (r *IdentifyRequest) PhoneValue() *string {
	if r.PhoneNumber == nil || *r.PhoneNumber == "" {
		return nil
	}
	s := string(*r.PhoneNumber)
	return &s
}

// ContactResponse is the consolidated view of one identity cluster.
type ContactResponse struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}

// IdentifyResponse represents the response body.
type IdentifyResponse struct {
	Contact ContactResponse `json:"contact"`
}
