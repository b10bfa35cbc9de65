package schedule

// Status is one of the enumerated presence states a person can declare.
// Snapshots loaded from older state may carry values outside the enumeration;
// renderers show those without a glyph.
type Status string

const (
	StatusIn    Status = "in"
	StatusPM    Status = "pm"
	StatusOut   Status = "out"
	StatusHome  Status = "home"
	StatusMaybe Status = "maybe"
	StatusTrip  Status = "trip"
	StatusWill  Status = "will"
	StatusCan   Status = "can"
)

// PlaceholderGlyph marks days without a usable entry in week and range views.
const PlaceholderGlyph = "➖"

// StatusInfo describes how a status renders and which date grammar its
// command accepts. Weekday tokens are accepted by every status command;
// AllowDate additionally opens the explicit-date, date-range and month
// grammars.
type StatusInfo struct {
	Glyph     string
	AllowDate bool
}

// statusTable is the single lookup consulted by both the command layer and
// the renderers.
var statusTable = map[Status]StatusInfo{
	StatusIn:    {Glyph: "✅"},
	StatusPM:    {Glyph: "🕒"},
	StatusOut:   {Glyph: "❌"},
	StatusHome:  {Glyph: "🏠"},
	StatusMaybe: {Glyph: "🤔", AllowDate: true},
	StatusTrip:  {Glyph: "✈️", AllowDate: true},
	StatusWill:  {Glyph: "📅", AllowDate: true},
	StatusCan:   {Glyph: "💡", AllowDate: true},
}

// Known reports whether s is one of the enumerated statuses.
func Known(s Status) bool {
	_, ok := statusTable[s]
	return ok
}

// Glyph returns the display glyph for a status, or "" for unknown statuses.
func Glyph(s Status) string {
	return statusTable[s].Glyph
}

// DateEligible reports whether the status command accepts explicit-date,
// date-range and month tokens.
func DateEligible(s Status) bool {
	return statusTable[s].AllowDate
}
