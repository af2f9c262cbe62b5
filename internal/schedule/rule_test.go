package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymclass/internal/model"
)

func TestParseRule_Full(t *testing.T) {
	desc, err := ParseRule("FREQ=WEEKLY;BYDAY=MO,WE,FR;BYHOUR=6;BYMINUTE=15;COUNT=6;UNTIL=20240301T100000Z")
	require.NoError(t, err)

	assert.True(t, desc.Weekdays.Contains(time.Monday))
	assert.True(t, desc.Weekdays.Contains(time.Wednesday))
	assert.True(t, desc.Weekdays.Contains(time.Friday))
	assert.False(t, desc.Weekdays.Contains(time.Tuesday))
	require.NotNil(t, desc.Hour)
	assert.Equal(t, 6, *desc.Hour)
	require.NotNil(t, desc.Minute)
	assert.Equal(t, 15, *desc.Minute)
	assert.Equal(t, 6, desc.Count)
	assert.Equal(t, time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC), desc.Until)
}

func TestParseRule_DateOnlyUntilCoversWholeDay(t *testing.T) {
	desc, err := ParseRule("FREQ=WEEKLY;UNTIL=20240301")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.March, 1, 23, 59, 59, 0, time.UTC), desc.Until)
}

func TestParseRule_MinimalDefaults(t *testing.T) {
	desc, err := ParseRule("FREQ=WEEKLY")
	require.NoError(t, err)

	assert.True(t, desc.Weekdays.IsEmpty())
	assert.Nil(t, desc.Hour)
	assert.Nil(t, desc.Minute)
	assert.Zero(t, desc.Count)
	assert.True(t, desc.Until.IsZero())
}

func TestParseRule_Errors(t *testing.T) {
	cases := []struct {
		name string
		rule string
	}{
		{"daily frequency", "FREQ=DAILY"},
		{"monthly frequency", "FREQ=MONTHLY;BYDAY=MO"},
		{"missing freq", "BYDAY=MO,WE"},
		{"empty rule", ""},
		{"unknown weekday code", "FREQ=WEEKLY;BYDAY=XX"},
		{"hour out of range", "FREQ=WEEKLY;BYHOUR=24"},
		{"minute out of range", "FREQ=WEEKLY;BYMINUTE=60"},
		{"non-numeric hour", "FREQ=WEEKLY;BYHOUR=six"},
		{"zero count", "FREQ=WEEKLY;COUNT=0"},
		{"negative count", "FREQ=WEEKLY;COUNT=-2"},
		{"malformed until", "FREQ=WEEKLY;UNTIL=2024-03-01"},
		{"pair without value", "FREQ=WEEKLY;BYDAY="},
		{"pair without equals", "FREQ=WEEKLY;COUNT"},
		{"unknown key", "FREQ=WEEKLY;BYSECOND=10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRule(tc.rule)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}
