package types

import "strings"

// Address is the shipping snapshot stored on an order.
type Address struct {
	Details    string `json:"details"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// AddressPatch carries the fields a shipping update wants to change.
type AddressPatch struct {
	Details    *string `json:"details,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	City       *string `json:"city,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AddressPatch) IsEmpty() bool {
	return p.Details == nil && p.Phone == nil && p.City == nil && p.PostalCode == nil
}

// Merge returns a copy of a with the non-nil patch fields applied.
func (a Address) Merge(p AddressPatch) Address {
	out := a
	if p.Details != nil {
		out.Details = strings.TrimSpace(*p.Details)
	}
	if p.Phone != nil {
		out.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.City != nil {
		out.City = strings.TrimSpace(*p.City)
	}
	if p.PostalCode != nil {
		out.PostalCode = strings.TrimSpace(*p.PostalCode)
	}
	return out
}
