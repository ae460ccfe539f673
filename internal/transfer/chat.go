package transfer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/ile-bank/ile_bank/internal/money"
)

// ErrUnrecognizedIntent indicates the free-text message did not parse as a
// transfer instruction.
var ErrUnrecognizedIntent = errors.New("could not understand transfer instruction")

// Intent is a parsed conversational transfer instruction. Amount is in minor
// units.
type Intent struct {
	Amount    int64
	Recipient string
}

// Accepts "send 5000 to ada", "transfer ₦2,500.50 to 2512345678",
// "pay 100 naira to @ada".
var intentPattern = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:send|transfer|pay)\s+(?:₦|ngn\s*)?([\d,]+(?:\.\d{1,2})?)\s*(?:naira\s+)?to\s+@?(\S+)\s*$`)

// ParseIntent extracts a transfer instruction from a chat message. Amounts in
// chat are major units (naira) and are converted to kobo here.
func ParseIntent(text string) (Intent, error) {
	m := intentPattern.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, ErrUnrecognizedIntent
	}

	raw := strings.ReplaceAll(m[1], ",", "")
	whole, frac, _ := strings.Cut(raw, ".")
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Intent{}, ErrUnrecognizedIntent
	}
	amount := money.FromMajor(major)
	if frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		kobo, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Intent{}, ErrUnrecognizedIntent
		}
		amount += kobo
	}
	if amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}

	return Intent{Amount: amount, Recipient: strings.TrimRight(m[2], ".,!?")}, nil
}
