package domain

import (
	"errors"
	"strings"
)

// Address is an immutable location value. Build it with NewAddress.
type Address struct {
	city    string
	country string
}

// NewAddress returns an Address once both parts are present.
func NewAddress(city, country string) (Address, error) {
	if strings.TrimSpace(city) == "" {
		return Address{}, errors.New("city is required")
	}
	if strings.TrimSpace(country) == "" {
		return Address{}, errors.New("country is required")
	}
	return Address{city: city, country: country}, nil
}

func (a Address) City() string {
	return a.city
}

func (a Address) Country() string {
	return a.country
}

// IsZero reports whether a was never built through NewAddress.
func (a Address) IsZero() bool {
	return a == Address{}
}
