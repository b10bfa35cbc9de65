package dateparse

import (
	"strings"
	"time"
)

// Result carries the outcome of parsing one command expression: the concrete
// dates the text names, and whatever free text remained.
type Result struct {
	// Dates preserves token order; within a range token, chronological
	// order. Duplicates are kept (downstream upserts by date key).
	Dates []time.Time
	// Note is the leftover free text.
	Note string
}

// Parse splits the expression into tokens, classifies each, and separates
// accepted dates from note text.
//
// Gating: weekday and weekday-range tokens count only when allowWeekday is
// set; explicit-date, date-range and month tokens only when allowDate is set.
// A gated-off or unclassifiable token joins the note in its original form.
//
// Blank input means "today" with an empty note. When no token yields a date,
// the whole original string becomes the note instead of the filtered token
// join, so nothing the caller typed is silently dropped.
func Parse(text string, allowWeekday, allowDate bool, ref time.Time) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Dates: []time.Time{dateOf(ref)}}
	}

	tokens := strings.Fields(strings.ReplaceAll(text, ",", " "))

	var dates []time.Time
	var noteTokens []string
	for _, token := range tokens {
		parsed, kind := Classify(token, ref)
		switch {
		case parsed == nil:
			noteTokens = append(noteTokens, token)
		case (kind == TokenWeekday || kind == TokenWeekdayRange) && !allowWeekday:
			noteTokens = append(noteTokens, token)
		case (kind == TokenDate || kind == TokenDateRange || kind == TokenMonth) && !allowDate:
			noteTokens = append(noteTokens, token)
		default:
			dates = append(dates, parsed...)
		}
	}

	if len(dates) == 0 {
		return Result{Dates: []time.Time{dateOf(ref)}, Note: text}
	}

	return Result{Dates: dates, Note: strings.Join(noteTokens, " ")}
}
