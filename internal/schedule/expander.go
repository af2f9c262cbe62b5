package schedule

import "time"

const (
	// DefaultHorizonDays bounds expansion when a rule has neither COUNT
	// nor UNTIL.
	DefaultHorizonDays = 84

	// DefaultMaxOccurrences caps one expansion when neither the caller
	// nor the rule limits it.
	DefaultMaxOccurrences = 24
)

// Expand turns a seed start time plus an optional recurrence descriptor
// into a bounded, chronologically ordered list of (start, end) intervals.
//
// With no descriptor the result is exactly one interval at the seed.
// Otherwise a day cursor walks forward from the seed's date; every day
// whose weekday is in the target set yields an occurrence at the target
// time of day, kept if it falls within [seedStart, until]. The walk stops
// at the effective cap (maxOccurrences if positive, else the rule's COUNT,
// else DefaultMaxOccurrences) or when the cursor passes until.
//
// Contradictory inputs that yield nothing fall back to the single seed
// occurrence, as if no descriptor were supplied.
func Expand(seedStart time.Time, durationMinutes int, desc *Descriptor, maxOccurrences int) []Interval {
	duration := time.Duration(durationMinutes) * time.Minute
	single := []Interval{{Start: seedStart, End: seedStart.Add(duration)}}

	if desc == nil {
		return single
	}

	weekdays := desc.Weekdays
	if weekdays.IsEmpty() {
		weekdays = weekdays.With(seedStart.Weekday())
	}

	hour, minute := seedStart.Hour(), seedStart.Minute()
	if desc.Hour != nil {
		hour = *desc.Hour
	}
	if desc.Minute != nil {
		minute = *desc.Minute
	}

	// A COUNT-only rule is bounded by its count alone; the horizon kicks
	// in only when nothing else bounds the walk.
	until := desc.Until
	if until.IsZero() && desc.Count == 0 {
		until = seedStart.AddDate(0, 0, DefaultHorizonDays)
	}

	limit := DefaultMaxOccurrences
	if desc.Count > 0 {
		limit = desc.Count
	}
	if maxOccurrences > 0 {
		limit = maxOccurrences
	}

	loc := seedStart.Location()
	var out []Interval

	for day := 0; len(out) < limit; day++ {
		date := seedStart.AddDate(0, 0, day)
		dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
		if !until.IsZero() && dayStart.After(until) {
			break
		}

		if !weekdays.Contains(dayStart.Weekday()) {
			continue
		}

		start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
		if start.Before(seedStart) {
			continue
		}
		if !until.IsZero() && start.After(until) {
			continue
		}

		out = append(out, Interval{Start: start, End: start.Add(duration)})
	}

	if len(out) == 0 {
		return single
	}

	return out
}
