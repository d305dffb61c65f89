package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rePostal = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,8}[A-Za-z0-9]$`)
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ      = regexp.MustCompile(`^[\p{L}0-9 _'\-&]{1,60}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reSlug   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	rePhone  = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

// PostalCode accepts the common alphanumeric postal formats (US ZIP, UK, CA).
func PostalCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 10 {
		return "", false
	}
	return strings.ToUpper(s), rePostal.MatchString(s)
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Phone is optional: an empty value is valid.
func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return s, rePhone.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s, reQ.MatchString(s)
}

func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return ClampQty(n)
}

// ClampQty bounds a cart quantity to 1..MaxQty.
func ClampQty(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxQty {
		return MaxQty
	}
	return n
}

const MaxQty = 50

// ID validates a simple resource identifier (uuid or seeded fixture id).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Slug(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && len(s) <= 80 && reSlug.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 80 {
		return "", false
	}
	return s, true
}

// Password enforces length and character-class rules.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

// Page parses a 1-based page number, defaulting to 1.
func Page(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
