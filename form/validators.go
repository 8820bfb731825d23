// ABOUTME: Input validators injected into generated form fields
// ABOUTME: Length and number-range checks returning display messages

package form

import (
	"fmt"
	"strconv"
	"strings"
)

// Validator checks one submitted raw value and returns a display
// message, or "" when the value is acceptable. Validators only run on
// non-empty input; empty input is handled by the required/optional
// logic in the field core.
type Validator func(raw string) string

// Length bounds the rune count of a string input. A zero Min or Max
// leaves that side unbounded.
func Length(min, max int) Validator {
	return func(raw string) string {
		n := len([]rune(raw))
		switch {
		case min > 0 && max > 0 && (n < min || n > max):
			return fmt.Sprintf("Field must be between %d and %d characters long.", min, max)
		case min > 0 && n < min:
			return fmt.Sprintf("Field must be at least %d characters long.", min)
		case max > 0 && n > max:
			return fmt.Sprintf("Field cannot be longer than %d characters.", max)
		}
		return ""
	}
}

// NumberRange bounds a numeric input. Nil bounds are open.
func NumberRange(min, max *float64) Validator {
	return func(raw string) string {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			// The field's own parse reports the type error.
			return ""
		}
		switch {
		case min != nil && max != nil && (v < *min || v > *max):
			return fmt.Sprintf("Number must be between %s and %s.", trimFloat(*min), trimFloat(*max))
		case min != nil && v < *min:
			return fmt.Sprintf("Number must be at least %s.", trimFloat(*min))
		case max != nil && v > *max:
			return fmt.Sprintf("Number must be at most %s.", trimFloat(*max))
		}
		return ""
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
