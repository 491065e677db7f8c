package core

import (
	"errors"
	"math"
	"strings"
)

type (
	// Item is a named project cost. The ID is assigned by the document
	// store on creation and is immutable afterwards.
	Item struct {
		ID   string
		Name string
		Cost float64
	}

	// OtherCost is an ad-hoc expense outside the item list.
	OtherCost struct {
		ID          string
		Description string
		Amount      float64
	}

	// User is the authenticated identity pushed by the identity provider.
	User struct {
		UID         string
		Email       string
		DisplayName string
		PhotoURL    string
	}
)

var (
	ErrEmptyName        = errors.New("name is required")
	ErrEmptyDescription = errors.New("description is required")
	ErrNonPositiveCost  = errors.New("cost must be positive")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmptyPassword    = errors.New("password is required")
)

// Validate gates the create/update path: the document store must never be
// reached with an empty name or a non-positive cost. Entities ingested from
// the store are not re-validated, so out-of-band values still render.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if !(i.Cost > 0) || math.IsInf(i.Cost, 0) {
		return ErrNonPositiveCost
	}
	return nil
}

func (c OtherCost) Validate() error {
	if strings.TrimSpace(c.Description) == "" {
		return ErrEmptyDescription
	}
	if !(c.Amount > 0) || math.IsInf(c.Amount, 0) {
		return ErrNonPositiveCost
	}
	return nil
}

// IsValidEmail mirrors the signup/login pages: one "@", a dot in the domain,
// no whitespace.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " \t") {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
