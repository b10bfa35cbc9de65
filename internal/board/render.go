// Package board projects the schedule store into display text: a single-day
// list, a 7-day strip, an N-day grid, and a per-person agenda.
package board

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zerollpaper/presence-bot/internal/schedule"
)

const nobodyLine = "(nobody has registered yet)"

// RenderDay lists every person with a non-empty status on the given date,
// sorted by name.
func RenderDay(store *schedule.Store, date time.Time) string {
	key := schedule.DateKey(date)
	lines := []string{"Presence board " + key}

	entries := store.EntriesOn(key)
	if len(entries) == 0 {
		lines = append(lines, nobodyLine)
		return strings.Join(lines, "\n")
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := entries[name]
		if entry.Status == "" {
			continue
		}
		line := "- " + name + " " + statusLabel(entry.Status)
		if entry.Note != "" {
			line += " (" + entry.Note + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderWeek shows the 7-day window starting today, one row of
// day(weekday)glyph cells per person.
func RenderWeek(store *schedule.Store, today time.Time) string {
	lines := []string{"Presence board (next 7 days)"}

	names := store.PersonsInRange(today, 7)
	if len(names) == 0 {
		lines = append(lines, nobodyLine)
		return strings.Join(lines, "\n")
	}

	for _, name := range names {
		sched := store.PersonSchedule(name)
		cells := make([]string, 0, 7)
		for i := 0; i < 7; i++ {
			date := today.AddDate(0, 0, i)
			cells = append(cells, fmt.Sprintf("%d(%s)%s", date.Day(), date.Format("Mon"), cellGlyph(sched, date)))
		}
		lines = append(lines, "", "*"+name+"*", "  "+strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

// RenderRange generalizes the week view to numDays, wrapped in a code block
// for fixed-width alignment. Windows spanning two or more weeks switch to a
// grid: weekday labels above the first week only, then one compact
// day-number+glyph row per week.
func RenderRange(store *schedule.Store, today time.Time, numDays int) string {
	lines := []string{fmt.Sprintf("Presence board (%d days)", numDays)}

	names := store.PersonsInRange(today, numDays)
	if len(names) == 0 {
		lines = append(lines, nobodyLine)
		return codeBlock(lines)
	}

	weeks := (numDays + 6) / 7

	for _, name := range names {
		sched := store.PersonSchedule(name)
		lines = append(lines, "", name)

		if weeks < 2 {
			cells := make([]string, 0, numDays)
			for i := 0; i < numDays; i++ {
				date := today.AddDate(0, 0, i)
				cells = append(cells, fmt.Sprintf("%d(%s)%s", date.Day(), date.Format("Mon"), cellGlyph(sched, date)))
			}
			lines = append(lines, "  "+strings.Join(cells, " | "))
			continue
		}

		for week := 0; week < weeks; week++ {
			startDay := week * 7
			endDay := startDay + 7
			if endDay > numDays {
				endDay = numDays
			}

			var row strings.Builder
			if week == 0 {
				var header strings.Builder
				for i := startDay; i < endDay; i++ {
					date := today.AddDate(0, 0, i)
					// " Mo " is 4 columns wide, matching the
					// 2-digit day plus double-width glyph below.
					header.WriteString(" " + date.Format("Mon")[:2] + " ")
					row.WriteString(fmt.Sprintf("%2d%s", date.Day(), cellGlyph(sched, date)))
				}
				lines = append(lines, "  "+header.String(), "  "+row.String())
				continue
			}
			for i := startDay; i < endDay; i++ {
				date := today.AddDate(0, 0, i)
				row.WriteString(fmt.Sprintf("%2d%s", date.Day(), cellGlyph(sched, date)))
			}
			lines = append(lines, "  "+row.String())
		}
	}
	return codeBlock(lines)
}

// RenderPersonUpcoming lists the person's entries from today onward in
// chronological order. Entries already in the past are skipped even when a
// cleanup pass has not removed them yet.
func RenderPersonUpcoming(store *schedule.Store, person string, today time.Time) string {
	lines := []string{"Schedule for " + person}

	sched := store.PersonSchedule(person)
	if len(sched) == 0 {
		lines = append(lines, "(no schedule registered)")
		return strings.Join(lines, "\n")
	}

	todayKey := schedule.DateKey(today)
	keys := make([]string, 0, len(sched))
	for key := range sched {
		if key >= todayKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		lines = append(lines, "(no upcoming entries)")
		return strings.Join(lines, "\n")
	}

	for _, key := range keys {
		date, err := time.ParseInLocation("2006-01-02", key, today.Location())
		if err != nil {
			continue
		}
		entry := sched[key]
		line := fmt.Sprintf("- %d/%d (%s): %s", int(date.Month()), date.Day(), date.Format("Mon"), statusLabel(entry.Status))
		if entry.Note != "" {
			line += " (" + entry.Note + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// statusLabel prefixes known statuses with their glyph; unknown statuses
// render as raw text.
func statusLabel(status schedule.Status) string {
	if glyph := schedule.Glyph(status); glyph != "" {
		return glyph + " " + string(status)
	}
	return string(status)
}

// cellGlyph picks the glyph for one day cell, falling back to the
// placeholder for absent days and unknown statuses.
func cellGlyph(sched map[string]schedule.Entry, date time.Time) string {
	if entry, ok := sched[schedule.DateKey(date)]; ok {
		if glyph := schedule.Glyph(entry.Status); glyph != "" {
			return glyph
		}
	}
	return schedule.PlaceholderGlyph
}

func codeBlock(lines []string) string {
	return "```\n" + strings.Join(lines, "\n") + "\n```"
}
