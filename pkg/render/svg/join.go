package svg

import (
	"fmt"
	"strings"
	"unicode"
)

// Diff is the outcome of reconciling a keyed element set against new data.
type Diff struct {
	Enter  []string // keys present only in the new data
	Update []string // keys present in both
	Exit   []string // keys present only in the current set
}

// Join compares the keys currently bound to elements with the keys of the
// next data set. Enter and Update follow the order of next; Exit follows the
// order of current. Duplicate keys in next are bound once.
func Join(current, next []string) Diff {
	have := make(map[string]bool, len(current))
	for _, k := range current {
		have[k] = true
	}

	var d Diff
	seen := make(map[string]bool, len(next))
	for _, k := range next {
		if seen[k] {
			continue
		}
		seen[k] = true
		if have[k] {
			d.Update = append(d.Update, k)
		} else {
			d.Enter = append(d.Enter, k)
		}
	}
	for _, k := range current {
		if !seen[k] {
			d.Exit = append(d.Exit, k)
		}
	}
	return d
}

// SafeID makes a key usable as an XML id. Letters, digits, '-' and '.'
// pass through; every other rune becomes _<hex>_, so distinct keys always
// give distinct ids.
func SafeID(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "_%x_", r)
	}
	return b.String()
}
