// Package convert implements the unit and currency converter.
package convert

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrNegativeValue   = errors.New("value must not be negative")
	ErrInvalidValue    = errors.New("value is not a number")
)

// Category is a family of interconvertible units.
type Category string

const (
	Currency    Category = "currency"
	Length      Category = "length"
	Mass        Category = "mass"
	Temperature Category = "temperature"
	Volume      Category = "volume"
)

var Categories = []Category{Currency, Length, Mass, Temperature, Volume}

// ParseCategory returns the category with the given name.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	if name == "temp" {
		return Temperature, nil
	}
	return "", errors.Wrapf(ErrUnknownCategory, "%q", name)
}

// Decimals is the number of fraction digits results in c are displayed with.
func (c Category) Decimals() int {
	if c == Currency || c == Temperature {
		return 2
	}
	return 10
}

// Unit is a unit of measure. Factor is the size of the unit in the category's base unit
// (metre, kilogram, cubic metre); it is zero for temperatures.
type Unit struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Factor float64 `json:"factor,omitempty"`
}

var unitTables = map[Category][]Unit{
	Length: {
		{Code: "km", Name: "Kilometer", Factor: 1000},
		{Code: "m", Name: "Meter", Factor: 1},
		{Code: "cm", Name: "Centimeter", Factor: 0.01},
		{Code: "mm", Name: "Millimeter", Factor: 0.001},
		{Code: "mi", Name: "Mile", Factor: 1609.344},
		{Code: "yd", Name: "Yard", Factor: 0.9144},
		{Code: "ft", Name: "Foot", Factor: 0.3048},
		{Code: "in", Name: "Inch", Factor: 0.0254},
	},
	Mass: {
		{Code: "t", Name: "Tonne (Metric)", Factor: 1000},
		{Code: "kg", Name: "Kilogram", Factor: 1},
		{Code: "g", Name: "Gram", Factor: 0.001},
		{Code: "mg", Name: "Milligram", Factor: 0.000001},
		{Code: "lb", Name: "Pound (Avoirdupois)", Factor: 0.45359237},
		{Code: "oz", Name: "Ounce (Avoirdupois)", Factor: 0.0283495231},
	},
	Volume: {
		{Code: "m3", Name: "Cubic Meter", Factor: 1},
		{Code: "l", Name: "Liter", Factor: 0.001},
		{Code: "ml", Name: "Milliliter", Factor: 0.000001},
		{Code: "gal", Name: "Gallon (US)", Factor: 0.00378541},
		{Code: "qt", Name: "Quart (US)", Factor: 0.000946353},
		{Code: "pt", Name: "Pint (US)", Factor: 0.000473176},
		{Code: "cup", Name: "Cup (US)", Factor: 0.000236588},
	},
	Temperature: {
		{Code: "C", Name: "Celsius"},
		{Code: "F", Name: "Fahrenheit"},
		{Code: "K", Name: "Kelvin"},
	},
}

func lookupUnit(c Category, code string) (Unit, bool) {
	for _, u := range unitTables[c] {
		if u.Code == code {
			return u, true
		}
	}
	return Unit{}, false
}

// Converter converts values between units. Currency conversion uses the most recently
// installed rates; until the first refresh the built-in defaults apply.
type Converter struct {
	mu    sync.RWMutex
	rates Rates
}

func NewConverter() *Converter {
	return &Converter{rates: DefaultRates()}
}

// SetRates installs a new rate table.
func (c *Converter) SetRates(r Rates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = r
}

func (c *Converter) Rates() Rates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates
}

// Units lists the units of category c sorted by code. Currencies come from the rate table.
func (c *Converter) Units(cat Category) ([]Unit, error) {
	if cat == Currency {
		rates := c.Rates()
		units := make([]Unit, 0, len(rates.Values))
		for code := range rates.Values {
			name := rates.Names[code]
			if name == "" {
				name = code
			}
			units = append(units, Unit{Code: code, Name: name})
		}
		sort.Slice(units, func(i, j int) bool { return units[i].Code < units[j].Code })
		return units, nil
	}

	table, ok := unitTables[cat]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCategory, "%q", cat)
	}
	units := append([]Unit(nil), table...)
	sort.Slice(units, func(i, j int) bool { return units[i].Code < units[j].Code })
	return units, nil
}

// Convert converts value from one unit to another. Only temperatures may be negative.
func (c *Converter) Convert(cat Category, from, to string, value float64) (float64, error) {
	if math.IsNaN(value) {
		return 0, ErrInvalidValue
	}
	if value < 0 && cat != Temperature {
		return 0, ErrNegativeValue
	}

	switch cat {
	case Currency:
		rates := c.Rates()
		fromRate, ok := rates.Values[from]
		if !ok || fromRate == 0 {
			return 0, errors.Wrapf(ErrUnknownUnit, "currency %q", from)
		}
		toRate, ok := rates.Values[to]
		if !ok || toRate == 0 {
			return 0, errors.Wrapf(ErrUnknownUnit, "currency %q", to)
		}
		return value * toRate / fromRate, nil
	case Temperature:
		if _, ok := lookupUnit(cat, from); !ok {
			return 0, errors.Wrapf(ErrUnknownUnit, "temperature %q", from)
		}
		if _, ok := lookupUnit(cat, to); !ok {
			return 0, errors.Wrapf(ErrUnknownUnit, "temperature %q", to)
		}
		return fromCelsius(toCelsius(value, from), to), nil
	case Length, Mass, Volume:
		fromUnit, ok := lookupUnit(cat, from)
		if !ok {
			return 0, errors.Wrapf(ErrUnknownUnit, "%s %q", cat, from)
		}
		toUnit, ok := lookupUnit(cat, to)
		if !ok {
			return 0, errors.Wrapf(ErrUnknownUnit, "%s %q", cat, to)
		}
		return value * fromUnit.Factor / toUnit.Factor, nil
	}
	return 0, errors.Wrapf(ErrUnknownCategory, "%q", cat)
}

func toCelsius(v float64, unit string) float64 {
	switch unit {
	case "F":
		return (v - 32) * 5 / 9
	case "K":
		return v - 273.15
	}
	return v
}

func fromCelsius(v float64, unit string) float64 {
	switch unit {
	case "F":
		return v*9/5 + 32
	case "K":
		return v + 273.15
	}
	return v
}
