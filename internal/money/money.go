// Package money handles minor-unit amounts and their presentation. Amounts
// are stored and computed in kobo; formatting to naira happens only at the
// boundary (notifications, chat summaries).
package money

import "fmt"

// MinorPerMajor is the number of minor units (kobo) in one major unit (naira).
const MinorPerMajor = 100

// FromMajor converts a major-unit amount into minor units.
func FromMajor(major int64) int64 {
	return major * MinorPerMajor
}

// FormatNaira renders a minor-unit amount as a naira string, e.g. 250000 ->
// "₦2,500.00".
func FormatNaira(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	major := minor / MinorPerMajor
	cents := minor % MinorPerMajor
	return fmt.Sprintf("%s₦%s.%02d", sign, groupThousands(major), cents)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
