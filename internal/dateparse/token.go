package dateparse

import (
	"strconv"
	"strings"
	"time"
)

// TokenType identifies how a single whitespace-delimited token was classified.
type TokenType int

const (
	// TokenInvalid marks a token that matched no grammar or named an
	// impossible calendar date.
	TokenInvalid TokenType = iota
	// TokenEmpty marks a blank token.
	TokenEmpty
	// TokenWeekday is a weekday name or 3-letter abbreviation.
	TokenWeekday
	// TokenWeekdayRange is a hyphenated weekday pair such as "mon-fri".
	TokenWeekdayRange
	// TokenDate is an explicit "m/d" date.
	TokenDate
	// TokenDateRange is a hyphenated "m/d-m/d" pair.
	TokenDateRange
	// TokenMonth is a month name or 3-letter abbreviation.
	TokenMonth
)

func (t TokenType) String() string {
	switch t {
	case TokenEmpty:
		return "empty"
	case TokenWeekday:
		return "weekday"
	case TokenWeekdayRange:
		return "weekday_range"
	case TokenDate:
		return "date"
	case TokenDateRange:
		return "date_range"
	case TokenMonth:
		return "month"
	default:
		return "invalid"
	}
}

// weekdayNames maps names and 3-letter abbreviations to a Monday-based index.
var weekdayNames = map[string]int{
	"mon": 0, "monday": 0,
	"tue": 1, "tuesday": 1,
	"wed": 2, "wednesday": 2,
	"thu": 3, "thursday": 3,
	"fri": 4, "friday": 4,
	"sat": 5, "saturday": 5,
	"sun": 6, "sunday": 6,
}

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// Classify normalizes one token and resolves the concrete dates it denotes
// relative to the reference instant. Returned dates are midnights in the
// reference location. A nil date slice means the token contributes no dates.
func Classify(token string, ref time.Time) ([]time.Time, TokenType) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, TokenEmpty
	}

	if strings.Contains(token, "-") {
		return classifyRange(token, ref)
	}

	if target, ok := weekdayNames[token]; ok {
		return []time.Time{NextWeekday(target, ref)}, TokenWeekday
	}

	if month, ok := monthNames[token]; ok {
		return monthDates(month, ref), TokenMonth
	}

	if month, day, ok := splitMonthDay(token); ok {
		date, valid := resolveMonthDay(month, day, ref)
		if !valid {
			return nil, TokenInvalid
		}
		return []time.Time{date}, TokenDate
	}

	return nil, TokenInvalid
}

// classifyRange handles hyphenated tokens. Only the first hyphen splits; both
// sides must match the same sub-grammar (weekday pair or "m/d" pair).
func classifyRange(token string, ref time.Time) ([]time.Time, TokenType) {
	left, right, _ := strings.Cut(token, "-")
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)

	startIdx, startOK := weekdayNames[left]
	endIdx, endOK := weekdayNames[right]
	if startOK && endOK {
		// Cyclic walk, at most 7 emitted dates. Each index resolves
		// independently to its next occurrence, so the output is not
		// necessarily chronological.
		dates := make([]time.Time, 0, 7)
		for current := startIdx; ; current = (current + 1) % 7 {
			dates = append(dates, NextWeekday(current, ref))
			if current == endIdx {
				break
			}
		}
		return dates, TokenWeekdayRange
	}

	startMonth, startDay, startOK := splitMonthDay(left)
	endMonth, endDay, endOK := splitMonthDay(right)
	if startOK && endOK {
		start, valid := resolveMonthDay(startMonth, startDay, ref)
		if !valid {
			return nil, TokenInvalid
		}
		endYear := start.Year()
		if endMonth < startMonth {
			endYear++
		}
		end, valid := makeDate(endYear, endMonth, endDay, ref.Location())
		if !valid {
			return nil, TokenInvalid
		}
		// The single year bump above cannot order every pair; a range
		// that still ends before it starts names no span at all.
		if end.Before(start) {
			return nil, TokenInvalid
		}
		dates := make([]time.Time, 0, 8)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
		return dates, TokenDateRange
	}

	return nil, TokenInvalid
}

// NextWeekday returns the next occurrence of the target weekday index
// (Monday=0) at or after the reference instant. When the reference already
// falls on the target weekday, the reference date itself is returned.
func NextWeekday(target int, ref time.Time) time.Time {
	ahead := (target - mondayIndex(ref.Weekday())) % 7
	if ahead < 0 {
		ahead += 7
	}
	return dateOf(ref).AddDate(0, 0, ahead)
}

func mondayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

// dateOf truncates an instant to midnight in its own location.
func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// splitMonthDay matches the strict "digits(1-2)/digits(1-2)" pattern.
func splitMonthDay(s string) (time.Month, int, bool) {
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash >= len(s)-1 {
		return 0, 0, false
	}
	monthPart, dayPart := s[:slash], s[slash+1:]
	if len(monthPart) > 2 || len(dayPart) > 2 || !allDigits(monthPart) || !allDigits(dayPart) {
		return 0, 0, false
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil {
		return 0, 0, false
	}
	day, err := strconv.Atoi(dayPart)
	if err != nil {
		return 0, 0, false
	}
	return time.Month(month), day, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// resolveMonthDay applies the forward-bump year rule: the reference year, or
// the following year when the month/day already passed relative to the
// reference date.
func resolveMonthDay(month time.Month, day int, ref time.Time) (time.Time, bool) {
	year := ref.Year()
	if month < ref.Month() || (month == ref.Month() && day < ref.Day()) {
		year++
	}
	return makeDate(year, month, day, ref.Location())
}

// makeDate builds a midnight date and rejects combinations time.Date would
// silently normalize (e.g. April 31 becoming May 1).
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// monthDates expands a month name to every date of that month in the resolved
// year: the reference year, or the next one when the month already passed.
func monthDates(month time.Month, ref time.Time) []time.Time {
	year := ref.Year()
	if month < ref.Month() {
		year++
	}
	dates := make([]time.Time, 0, 31)
	for d := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location()); d.Month() == month; d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
