package model

import "strings"

// Address is the shipping address snapshot copied onto receipts.
type Address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
}

// User is a bidder or payee.  Identity and credentials live in the external
// auth service; only display and shipping fields are read here.
type User struct {
	ID        uint64  // users.id
	FirstName string  // users.first_name
	LastName  string  // users.last_name
	Address   Address // users.street_number .. users.postal_code
}

// DisplayName joins first and last name.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
