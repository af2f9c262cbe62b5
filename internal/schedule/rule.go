package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gymclass/internal/model"
)

// Descriptor is a parsed recurrence rule. It is consumed once at class
// creation and never persisted as its own entity.
type Descriptor struct {
	Weekdays model.WeekdaySet // empty = use the seed's weekday
	Hour     *int             // nil = use the seed's hour
	Minute   *int             // nil = use the seed's minute
	Count    int              // 0 = no explicit count
	Until    time.Time        // zero = no explicit until
}

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// ParseRule parses the supported recurrence grammar: semicolon-separated
// KEY=VALUE pairs with keys FREQ, BYDAY, BYHOUR, BYMINUTE, COUNT, UNTIL.
// Only FREQ=WEEKLY is supported and FREQ is mandatory. All failures wrap
// model.ErrValidation.
func ParseRule(rule string) (*Descriptor, error) {
	desc := &Descriptor{}
	seenFreq := false

	for _, part := range strings.Split(rule, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return nil, fmt.Errorf("%w: malformed recurrence pair %q", model.ErrValidation, part)
		}

		switch strings.ToUpper(key) {
		case "FREQ":
			if !strings.EqualFold(value, "WEEKLY") {
				return nil, fmt.Errorf("%w: unsupported frequency %q, only WEEKLY is supported", model.ErrValidation, value)
			}
			seenFreq = true

		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				day, ok := weekdayCodes[strings.ToUpper(strings.TrimSpace(code))]
				if !ok {
					return nil, fmt.Errorf("%w: unknown weekday code %q", model.ErrValidation, code)
				}
				desc.Weekdays = desc.Weekdays.With(day)
			}

		case "BYHOUR":
			hour, err := strconv.Atoi(value)
			if err != nil || hour < 0 || hour > 23 {
				return nil, fmt.Errorf("%w: BYHOUR must be 0-23, got %q", model.ErrValidation, value)
			}
			desc.Hour = &hour

		case "BYMINUTE":
			minute, err := strconv.Atoi(value)
			if err != nil || minute < 0 || minute > 59 {
				return nil, fmt.Errorf("%w: BYMINUTE must be 0-59, got %q", model.ErrValidation, value)
			}
			desc.Minute = &minute

		case "COUNT":
			count, err := strconv.Atoi(value)
			if err != nil || count <= 0 {
				return nil, fmt.Errorf("%w: COUNT must be a positive integer, got %q", model.ErrValidation, value)
			}
			desc.Count = count

		case "UNTIL":
			until, err := parseUntil(value)
			if err != nil {
				return nil, err
			}
			desc.Until = until

		default:
			return nil, fmt.Errorf("%w: unknown recurrence key %q", model.ErrValidation, key)
		}
	}

	if !seenFreq {
		return nil, fmt.Errorf("%w: recurrence rule is missing FREQ", model.ErrValidation)
	}

	return desc, nil
}

// parseUntil accepts YYYYMMDD or YYYYMMDDTHHMMSSZ. A date-only UNTIL keeps
// the whole named day eligible.
func parseUntil(value string) (time.Time, error) {
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("20060102", value); err == nil {
		return t.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, fmt.Errorf("%w: UNTIL must be YYYYMMDD or YYYYMMDDTHHMMSSZ, got %q", model.ErrValidation, value)
}
