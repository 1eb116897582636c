package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a measurement unit for ingredient quantities.
type Unit string

const (
	Gram       Unit = "GRAM"
	Kilogram   Unit = "KILOGRAM"
	Milliliter Unit = "MILLILITER"
	Liter      Unit = "LITER"
	Piece      Unit = "PIECE"
	Tablespoon Unit = "TABLESPOON"
	Teaspoon   Unit = "TEASPOON"
	Cup        Unit = "CUP"
	Ounce      Unit = "OUNCE"
	Pound      Unit = "POUND"
)

// baseFactors maps each unit to grams (mass) or milliliters (volume).
// Liquids are assumed to have a density of 1.
var baseFactors = map[Unit]decimal.Decimal{
	Gram:       decimal.NewFromInt(1),
	Kilogram:   decimal.NewFromInt(1000),
	Milliliter: decimal.NewFromInt(1),
	Liter:      decimal.NewFromInt(1000),
	Piece:      decimal.NewFromInt(100),
	Tablespoon: decimal.NewFromInt(15),
	Teaspoon:   decimal.NewFromInt(5),
	Cup:        decimal.NewFromInt(240),
	Ounce:      decimal.RequireFromString("28.35"),
	Pound:      decimal.RequireFromString("453.59"),
}

// All returns every supported unit in declaration order.
func All() []Unit {
	return []Unit{Gram, Kilogram, Milliliter, Liter, Piece, Tablespoon, Teaspoon, Cup, Ounce, Pound}
}

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	_, ok := baseFactors[u]
	return ok
}

// Parse converts user input such as "kilogram" or " CUP " into a Unit.
func Parse(s string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("unknown unit %q", s)
	}
	return u, nil
}

// ToBase converts quantity expressed in unit to grams or milliliters.
// Units are validated at the boundaries, so an unknown unit here is a bug.
func ToBase(quantity decimal.Decimal, unit Unit) decimal.Decimal {
	factor, ok := baseFactors[unit]
	if !ok {
		panic(fmt.Sprintf("units: no base conversion for %q", unit))
	}
	return quantity.Mul(factor)
}

// BaseLabel is the display name of the base unit quantities are normalized to.
const BaseLabel = "g/ml"
