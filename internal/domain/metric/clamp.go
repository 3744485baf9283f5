package metric

import (
	"math"
	"strconv"
	"strings"
)

// Field domains for user-entered values.
const (
	MinAge    = 5
	MaxAge    = 90
	MinHeight = 50.0
	MaxHeight = 250.0
	MinWeight = 25.0
	MaxWeight = 250.0
)

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// ClampAge forces age into [MinAge, MaxAge].
func ClampAge(age int) int {
	if age < MinAge {
		return MinAge
	}
	if age > MaxAge {
		return MaxAge
	}
	return age
}

// ClampHeight forces height into [MinHeight, MaxHeight]; NaN becomes MinHeight.
func ClampHeight(cm float64) float64 {
	if math.IsNaN(cm) {
		return MinHeight
	}
	return clampFloat(cm, MinHeight, MaxHeight)
}

// ClampWeight forces weight into [MinWeight, MaxWeight]; NaN becomes MinWeight.
func ClampWeight(kg float64) float64 {
	if math.IsNaN(kg) {
		return MinWeight
	}
	return clampFloat(kg, MinWeight, MaxWeight)
}

// Field names accepted by NormalizeField.
const (
	FieldAge    = "age"
	FieldHeight = "height"
	FieldWeight = "weight"
)

// Normalized is a form value after sanitizing, parsing and clamping.
type Normalized struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// digitsOnly drops everything but 0-9.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeDecimal keeps digits and the first '.'.
func sanitizeDecimal(s string) string {
	var b strings.Builder
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dot:
			dot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeField turns raw text typed into a form field into an in-domain value.
// Unknown fields return ok=false so the caller keeps its last valid value.
func NormalizeField(field, text string) (Normalized, bool) {
	switch field {
	case FieldAge:
		d := digitsOnly(text)
		n := 0
		if d != "" {
			v, err := strconv.Atoi(d)
			if err != nil {
				// too many digits to fit an int
				v = MaxAge
			}
			n = v
		}
		n = ClampAge(n)
		return Normalized{Field: field, Value: float64(n), Text: strconv.Itoa(n)}, true
	case FieldHeight:
		v := parseDecimal(text, MinHeight)
		v = ClampHeight(v)
		return Normalized{Field: field, Value: v, Text: strconv.FormatFloat(v, 'f', 1, 64)}, true
	case FieldWeight:
		v := parseDecimal(text, MinWeight)
		v = ClampWeight(v)
		return Normalized{Field: field, Value: v, Text: strconv.FormatFloat(v, 'f', 1, 64)}, true
	}
	return Normalized{}, false
}

// parseDecimal parses sanitized text; empty input reads as 0 and anything
// unparseable falls back to the field's lower bound.
func parseDecimal(text string, fallback float64) float64 {
	s := sanitizeDecimal(text)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if math.IsInf(v, 1) {
		// overflow, clamping takes it to the upper bound
		return v
	}
	if err != nil || math.IsNaN(v) {
		return fallback
	}
	return v
}
