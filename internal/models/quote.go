package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidTransition is returned when a quote status change is not allowed.
var ErrInvalidTransition = errors.New("invalid quote status transition")

// QuoteStatus is the processing state of a submitted quote.
type QuoteStatus string

const (
	// QuoteStatusPending is the state of every new quote.
	QuoteStatusPending QuoteStatus = "Pending"
	// QuoteStatusProcessed is set by the admin console.
	QuoteStatusProcessed QuoteStatus = "Processed"
	// QuoteStatusArchived is a valid value but nothing produces it yet.
	QuoteStatusArchived QuoteStatus = "Archived"
)

// Valid reports whether s is a known status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusProcessed, QuoteStatusArchived:
		return true
	}
	return false
}

// CanTransition reports whether a quote in status s may move to to.
// Only Pending to Processed exists; nothing returns to Pending.
func (s QuoteStatus) CanTransition(to QuoteStatus) bool {
	return s == QuoteStatusPending && to == QuoteStatusProcessed
}

// QuoteItem is one line of a quote. ProductID is not checked against the
// catalog; deleting a product leaves existing items untouched.
type QuoteItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"` // Snapshot taken when the item was added.
	Variant     Variant `json:"variant"`
	Details     string  `json:"details,omitempty"`
}

// SubmittedQuote is a quote request sent from the storefront.
type SubmittedQuote struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Phone   string      `json:"phone,omitempty"`
	Items   []QuoteItem `json:"items"`
	Message string      `json:"message"`
	Date    string      `json:"date"`
	Status  QuoteStatus `json:"status"`
}

// Clone returns a deep copy.
func (q SubmittedQuote) Clone() SubmittedQuote {
	c := q
	c.Items = slices.Clone(q.Items)
	return c
}

// GetID returns the quote id.
func (q SubmittedQuote) GetID() string {
	return q.ID
}

// ContactMessage is a message sent from the storefront with an empty cart.
type ContactMessage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Read    bool   `json:"read"`
}

// Clone returns a copy.
func (m ContactMessage) Clone() ContactMessage {
	return m
}

// GetID returns the message id.
func (m ContactMessage) GetID() string {
	return m.ID
}

// ContactFields is the storefront contact form.
type ContactFields struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	InquiryType string `json:"inquiryType,omitempty"`
	Message     string `json:"message"`
}

// Validate checks the required fields.
func (f *ContactFields) Validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// String is used in logs; it omits the message body.
func (f *ContactFields) String() string {
	return fmt.Sprintf("%s <%s>", f.Name, f.Email)
}
