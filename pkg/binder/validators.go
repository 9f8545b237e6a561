package binder

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// values checks single values outside of request binding, such as rows
// read from a CSV import, with the same rules the binder applies.
var values = func() *validator.Validate {
	v, err := newValidator()
	if err != nil {
		panic(err)
	}
	return v
}()

var (
	dateRE     = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|1[0-9]|2[0-9]|3[0-1])$`)
	languageRE = regexp.MustCompile(`^[a-z]{2}$`)
)

// dateValidator ensures the value matches the format YYYY-MM-DD or the empty
// string. The empty string is allowed so that optional dates can be omitted;
// add `ne=` to the validate tag when the date is required.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// isbnValidator accepts an empty string or a well-formed ISBN-10/ISBN-13.
// Hyphens and spaces are ignored.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return ValidISBN(value)
}

// languageValidator accepts an empty string or a lowercase two-letter code.
func languageValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return languageRE.MatchString(value)
}

// ValidEmail reports whether s passes the `email` rule used on payloads.
func ValidEmail(s string) bool {
	return values.Var(s, email) == nil
}

// NormalizeISBN strips separators and upper-cases a trailing X.
func NormalizeISBN(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", " ", "").Replace(s)
}

// ValidISBN reports whether s is an ISBN-10 or ISBN-13 with a correct check
// digit.
func ValidISBN(s string) bool {
	s = NormalizeISBN(s)
	switch len(s) {
	case 10:
		sum := 0
		for i, r := range s {
			var d int
			switch {
			case r >= '0' && r <= '9':
				d = int(r - '0')
			case r == 'X' && i == 9:
				d = 10
			default:
				return false
			}
			sum += d * (10 - i)
		}
		return sum%11 == 0
	case 13:
		sum := 0
		for i, r := range s {
			if r < '0' || r > '9' {
				return false
			}
			d := int(r - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		return sum%10 == 0
	default:
		return false
	}
}
