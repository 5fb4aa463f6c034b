package types

import (
	"fmt"
	"strings"
)

// ShippingAddress is the delivery destination captured at checkout. Stored as
// jsonb alongside the order so the snapshot survives later profile edits.
type ShippingAddress struct {
	Street     string  `json:"street"`
	City       string  `json:"city"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate checks the mandatory fields.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return fmt.Errorf("shipping address: missing street")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("shipping address: missing city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("shipping address: missing postal code")
	}
	return nil
}
