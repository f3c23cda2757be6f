// File path: internal/calc/convert.go
package calc

import (
	"fmt"
	"strings"
)

// Unit conversion is table-driven: every supported unit maps to a canonical
// base unit per family, and conversion multiplies through the base. Unknown
// unit pairs are an explicit typed failure, never a silent zero.

type unitDef struct {
	family string
	toBase float64
}

var unitTable = map[string]unitDef{
	// length, base meter
	"mm": {"length", 0.001}, "millimeter": {"length", 0.001}, "millimeters": {"length", 0.001},
	"cm": {"length", 0.01}, "centimeter": {"length", 0.01}, "centimeters": {"length", 0.01},
	"m": {"length", 1}, "meter": {"length", 1}, "meters": {"length", 1},
	"km": {"length", 1000}, "kilometer": {"length", 1000}, "kilometers": {"length", 1000},
	"in": {"length", 0.0254}, "inch": {"length", 0.0254}, "inches": {"length", 0.0254},
	"ft": {"length", 0.3048}, "foot": {"length", 0.3048}, "feet": {"length", 0.3048},
	"yd": {"length", 0.9144}, "yard": {"length", 0.9144}, "yards": {"length", 0.9144},
	"mi": {"length", 1609.344}, "mile": {"length", 1609.344}, "miles": {"length", 1609.344},
	// mass, base kilogram
	"g": {"mass", 0.001}, "gram": {"mass", 0.001}, "grams": {"mass", 0.001},
	"kg": {"mass", 1}, "kilogram": {"mass", 1}, "kilograms": {"mass", 1},
	"lb": {"mass", 0.45359237}, "lbs": {"mass", 0.45359237}, "pound": {"mass", 0.45359237}, "pounds": {"mass", 0.45359237},
	"oz": {"mass", 0.028349523125}, "ounce": {"mass", 0.028349523125}, "ounces": {"mass", 0.028349523125},
	"ton": {"mass", 1000}, "tons": {"mass", 1000}, "tonne": {"mass", 1000}, "tonnes": {"mass", 1000},
	// volume, base liter
	"ml": {"volume", 0.001}, "milliliter": {"volume", 0.001}, "milliliters": {"volume", 0.001},
	"l": {"volume", 1}, "liter": {"volume", 1}, "liters": {"volume", 1}, "litre": {"volume", 1}, "litres": {"volume", 1},
	"gal": {"volume", 3.785411784}, "gallon": {"volume", 3.785411784}, "gallons": {"volume", 3.785411784},
	// data, base megabyte
	"kb": {"data", 0.001}, "kilobyte": {"data", 0.001}, "kilobytes": {"data", 0.001},
	"mb": {"data", 1}, "megabyte": {"data", 1}, "megabytes": {"data", 1},
	"gb": {"data", 1000}, "gigabyte": {"data", 1000}, "gigabytes": {"data", 1000},
	"tb": {"data", 1000000}, "terabyte": {"data", 1000000}, "terabytes": {"data", 1000000},
	// time, base second
	"s": {"time", 1}, "sec": {"time", 1}, "second": {"time", 1}, "seconds": {"time", 1},
	"min": {"time", 60}, "minute": {"time", 60}, "minutes": {"time", 60},
	"h": {"time", 3600}, "hr": {"time", 3600}, "hour": {"time", 3600}, "hours": {"time", 3600},
	"day": {"time", 86400}, "days": {"time", 86400},
}

var temperatureUnits = map[string]string{
	"c": "celsius", "celsius": "celsius", "°c": "celsius",
	"f": "fahrenheit", "fahrenheit": "fahrenheit", "°f": "fahrenheit",
	"k": "kelvin", "kelvin": "kelvin",
}

// ConvertUnits converts value between two units of the same family.
func ConvertUnits(value float64, from, to string) (float64, error) {
	fromKey := strings.ToLower(strings.TrimSpace(from))
	toKey := strings.ToLower(strings.TrimSpace(to))
	if fromKey == "" || toKey == "" {
		return 0, fmt.Errorf("conversion units required")
	}
	if _, ok := temperatureUnits[fromKey]; ok {
		return convertTemperature(value, fromKey, toKey)
	}
	fromDef, ok := unitTable[fromKey]
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", from)
	}
	toDef, ok := unitTable[toKey]
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", to)
	}
	if fromDef.family != toDef.family {
		return 0, fmt.Errorf("cannot convert %s to %s: incompatible unit families", from, to)
	}
	return value * fromDef.toBase / toDef.toBase, nil
}

// convertTemperature is formula-driven through celsius as the pivot.
func convertTemperature(value float64, from, to string) (float64, error) {
	fromName, ok := temperatureUnits[from]
	if !ok {
		return 0, fmt.Errorf("unsupported temperature unit %q", from)
	}
	toName, ok := temperatureUnits[to]
	if !ok {
		return 0, fmt.Errorf("unsupported temperature unit %q", to)
	}
	var celsius float64
	switch fromName {
	case "celsius":
		celsius = value
	case "fahrenheit":
		celsius = (value - 32) * 5 / 9
	case "kelvin":
		celsius = value - 273.15
	}
	switch toName {
	case "celsius":
		return celsius, nil
	case "fahrenheit":
		return celsius*9/5 + 32, nil
	case "kelvin":
		return celsius + 273.15, nil
	}
	return 0, fmt.Errorf("unsupported temperature unit %q", to)
}
