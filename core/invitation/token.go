package invitation

import (
	"crypto/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

var (
	NowFunc = time.Now // mockable

	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateToken returns an opaque invitation token: a millisecond timestamp followed by a
// random suffix. Tokens generated by the same process are strictly increasing, hence unique.
// They are lookup keys, not secrets.
func GenerateToken() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(NowFunc()), entropy).String())
}

// ValidateEmail does a basic format check on `s`.
func ValidateEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// ValidatePhone accepts 10 to 15 digits once every non-digit has been stripped.
func ValidatePhone(s string) bool {
	n := len(core.Digits(s))
	return n >= 10 && n <= 15
}

// FormatPhoneNumber normalizes US numbers to +1XXXXXXXXXX.
// Only 10 digit inputs and 11 digit inputs starting with 1 are converted;
// anything else is returned unchanged.
func FormatPhoneNumber(s string) string {
	digits := core.Digits(s)
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return s
	}
}

// MissingFields returns the keys of `fields` whose value is blank, in `required` order.
func MissingFields(fields map[string]string, required ...string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
