// Package hours holds the business-hours vocabulary: the ordered set of
// time-of-day tokens a day can open or close on, the "Closed" literal,
// range parsing, and the aggregate window derived from seven days.
package hours

import (
	"fmt"
	"strings"
	"time"
)

// Closed is the literal for a day with no opening hours.
const Closed = "Closed"

// Default window used when no day is open.
const (
	DefaultOpen  = "9:00 AM"
	DefaultClose = "5:00 PM"
)

// rangeSep separates the two endpoints of a day range.
const rangeSep = " - "

// Days lists the weekdays in calendar order, lowercase as stored.
var Days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Vocabulary is the fixed, ordered list of time-of-day tokens, every
// half hour from "12:00 AM" to "11:30 PM".
var Vocabulary = buildVocabulary()

var tokenIndex = func() map[string]int {
	idx := make(map[string]int, len(Vocabulary))
	for i, tok := range Vocabulary {
		idx[tok] = i
	}
	return idx
}()

func buildVocabulary() []string {
	out := make([]string, 0, 48)
	for minutes := 0; minutes < 24*60; minutes += 30 {
		h, m := minutes/60, minutes%60
		suffix := "AM"
		if h >= 12 {
			suffix = "PM"
		}
		h12 := h % 12
		if h12 == 0 {
			h12 = 12
		}
		out = append(out, fmt.Sprintf("%d:%02d %s", h12, m, suffix))
	}
	return out
}

// IsToken reports whether s is a vocabulary token.
func IsToken(s string) bool {
	_, ok := tokenIndex[s]
	return ok
}

// Range is one day's open/close pair.
type Range struct {
	Open  string
	Close string
}

// String renders the range in its stored form.
func (r Range) String() string { return r.Open + rangeSep + r.Close }

// Format builds a stored day value from two tokens.
func Format(openTok, closeTok string) string { return Range{Open: openTok, Close: closeTok}.String() }

// IsClosed reports whether a stored day value means closed. Blank values
// count as closed for aggregation.
func IsClosed(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, Closed)
}

// ParseRange splits "open - close" into its endpoints without checking
// them against the vocabulary.
func ParseRange(value string) (Range, error) {
	openTok, closeTok, ok := strings.Cut(value, "-")
	openTok, closeTok = strings.TrimSpace(openTok), strings.TrimSpace(closeTok)
	if !ok || openTok == "" || closeTok == "" {
		return Range{}, fmt.Errorf("hours: %q is not an \"open - close\" range", value)
	}
	return Range{Open: openTok, Close: closeTok}, nil
}

// ValidateDay checks a stored day value: either Closed, or a range of two
// vocabulary tokens with open strictly before close.
func ValidateDay(value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return fmt.Errorf("hours: value is empty")
	}
	if strings.EqualFold(v, Closed) {
		return nil
	}
	r, err := ParseRange(v)
	if err != nil {
		return err
	}
	oi, ok := tokenIndex[r.Open]
	if !ok {
		return fmt.Errorf("hours: unknown opening time %q", r.Open)
	}
	ci, ok := tokenIndex[r.Close]
	if !ok {
		return fmt.Errorf("hours: unknown closing time %q", r.Close)
	}
	if oi >= ci {
		return fmt.Errorf("hours: opening time %s must be before closing time %s", r.Open, r.Close)
	}
	return nil
}

// minutesOf orders a token. Vocabulary tokens use their index; anything
// else is parsed as a clock time so off-vocabulary legacy values still
// aggregate. Unparsable tokens report ok=false.
func minutesOf(token string) (int, bool) {
	if i, ok := tokenIndex[token]; ok {
		return i * 30, true
	}
	for _, layout := range []string{"3:04 PM", "3:04PM", "3 PM", "3PM", "15:04"} {
		if t, err := time.Parse(layout, strings.ToUpper(token)); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// Window is the aggregate opening window across the week.
type Window struct {
	Open  string `json:"open"`
	Close string `json:"close"`
	// Default is true when every day was closed and the fixed default
	// window was substituted.
	Default bool `json:"-"`
}

// Aggregate scans the per-day values (any order) and returns the earliest
// opening time and the latest closing time among open days. Closed,
// blank and unparsable days are skipped; when nothing is open the default
// window is returned.
func Aggregate(days []string) Window {
	var (
		best     Window
		openMin  int
		closeMin int
		found    bool
	)

	for _, value := range days {
		if IsClosed(value) {
			continue
		}
		r, err := ParseRange(value)
		if err != nil {
			continue
		}
		om, ok1 := minutesOf(r.Open)
		cm, ok2 := minutesOf(r.Close)
		if !ok1 || !ok2 {
			continue
		}
		if !found || om < openMin {
			openMin, best.Open = om, r.Open
		}
		if !found || cm > closeMin {
			closeMin, best.Close = cm, r.Close
		}
		found = true
	}

	if !found {
		return Window{Open: DefaultOpen, Close: DefaultClose, Default: true}
	}
	return best
}
