// Package model defines data structures for the playroom platform.
package model

import (
	"time"
)

// Role is the role attached to an account profile.
type Role string

const (
	RoleCaregiver Role = "caregiver"
	RoleVendor    Role = "vendor"
	RoleAdmin     Role = "admin"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Account is the profile of an authenticated user.
type Account struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	TimezoneName string       `json:"timezone_name,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

// Location resolves the account timezone, falling back to UTC.
func (a *Account) Location() *time.Location {
	if a == nil || a.TimezoneName == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.TimezoneName)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Caregiver is another adult in the account's family unit.
type Caregiver struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// Kid is a child profile.
type Kid struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	FirstName string    `json:"first_name"`
	Birthday  time.Time `json:"birthday"`
}

// Household is everything an account may pick from on the first chat step.
type Household struct {
	Account    *Account
	Caregivers []Caregiver
	Kids       []Kid
}

// Caregiver looks up a caregiver of the household by id.
func (h *Household) Caregiver(id int64) (Caregiver, bool) {
	for _, c := range h.Caregivers {
		if c.ID == id {
			return c, true
		}
	}
	return Caregiver{}, false
}

// Kid looks up a kid of the household by id.
func (h *Household) Kid(id int64) (Kid, bool) {
	for _, k := range h.Kids {
		if k.ID == id {
			return k, true
		}
	}
	return Kid{}, false
}
