package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PizzaSize is the closed set of pizza sizes. Stored and serialized as the
// uppercase token; anything else is rejected at the boundary by ParseSize.
type PizzaSize string

const (
	SizeSmall  PizzaSize = "SMALL"
	SizeMedium PizzaSize = "MEDIUM"
	SizeLarge  PizzaSize = "LARGE"
)

// ParseSize normalizes a size token (case-insensitive) to its canonical
// PizzaSize. Any token outside the enum is an error.
func ParseSize(s string) (PizzaSize, error) {
	switch PizzaSize(strings.ToUpper(s)) {
	case SizeSmall:
		return SizeSmall, nil
	case SizeMedium:
		return SizeMedium, nil
	case SizeLarge:
		return SizeLarge, nil
	default:
		return "", fmt.Errorf("invalid pizza size %q: must be one of SMALL, MEDIUM, LARGE", s)
	}
}

// Pizza represents a menu item. Name uniqueness is enforced by the database
// index, not just the handler-level pre-check.
type Pizza struct {
	ID           int       `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex;not null"`
	Description  string    `json:"description"`
	Price        float64   `json:"price" gorm:"not null"`
	Size         PizzaSize `json:"size" gorm:"not null"`
	// Availability defaults to true at the create boundary; no column default so
	// an explicit false is never dropped from the insert.
	Availability bool `json:"availability"`
	// OutletCode is nil when the pizza is available at every outlet.
	OutletCode *string   `json:"outlet_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PizzaCreate is the request payload for creating a pizza.
// Name and price are pointers so the handler can check presence itself: gin's
// required binding treats supplied zero values (price 0, empty name) as
// absent, but both are valid input.
type PizzaCreate struct {
	Name         *string  `json:"name"`
	Description  string   `json:"description"`
	Price        *float64 `json:"price"`
	Size         string   `json:"size"`
	Availability *bool    `json:"availability"`
	OutletCode   *string  `json:"outlet_code"`
}

// PizzaUpdate is the partial-update payload. Pointer fields distinguish
// "not supplied" from a supplied zero value; only non-nil fields are applied.
// outlet_code additionally tracks key presence so an explicit null can clear
// the column, returning the pizza to every outlet's listing.
type PizzaUpdate struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	Size         *string  `json:"size"`
	Availability *bool    `json:"availability"`
	OutletCode   *string  `json:"outlet_code"`

	outletCodeSet bool
}

// UnmarshalJSON decodes the payload and records whether the outlet_code key
// was present, since a nil pointer alone cannot tell explicit null from an
// omitted field.
func (u *PizzaUpdate) UnmarshalJSON(data []byte) error {
	type alias PizzaUpdate
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = PizzaUpdate(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	_, u.outletCodeSet = raw["outlet_code"]
	return nil
}

// OutletCodeSet reports whether the outlet_code key appeared in the payload
func (u *PizzaUpdate) OutletCodeSet() bool {
	return u.outletCodeSet
}
