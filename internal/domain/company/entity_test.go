package company

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWindowBounds(t *testing.T) {
	start, end, err := TimeWindow{Start: "07:30", End: "08:30"}.Bounds()
	require.NoError(t, err)
	assert.Equal(t, 450, start)
	assert.Equal(t, 510, end)

	_, _, err = TimeWindow{Start: "7.30", End: "08:30"}.Bounds()
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)

	_, _, err = TimeWindow{Start: "09:00", End: "08:00"}.Bounds()
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestSettingsDecodeOntoDefaults(t *testing.T) {
	settings := DefaultSettings()
	raw := `{
		"timezone": "Asia/Makassar",
		"workplace_center": {"lat": -8.65, "lng": 115.21},
		"workplace_radius": 150,
		"penaltyRules": {"violationThresholds": {"late": 5}, "amounts": {"late": "25000"}},
		"holidays": ["2024-08-17 Independence Day", "2024-12-25"]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &settings))

	assert.Equal(t, "Asia/Makassar", settings.Timezone)
	assert.True(t, settings.GeofenceConfigured())
	assert.True(t, settings.GeofenceEnabled())
	assert.Equal(t, 5, settings.PenaltyRules.ThresholdFor("late"))
	assert.True(t, decimal.NewFromInt(25000).Equal(settings.PenaltyRules.AmountFor("late")))
	assert.True(t, settings.PenaltyRules.AmountFor("unknown").IsZero())
	assert.Equal(t, "07:30", settings.TimeWindows.Check1.Start, "unspecified windows keep defaults")
	assert.True(t, settings.IsHoliday("2024-08-17"))
	assert.True(t, settings.IsHoliday("2024-12-25"))
	assert.False(t, settings.IsHoliday("2024-08-18"))
}

func TestSettingsWorkingDays(t *testing.T) {
	settings := DefaultSettings()
	loc, err := settings.Location()
	require.NoError(t, err)

	saturday := time.Date(2024, time.March, 16, 9, 0, 0, 0, loc)
	monday := time.Date(2024, time.March, 18, 9, 0, 0, 0, loc)
	assert.False(t, settings.IsWorkingDay(saturday))
	assert.True(t, settings.IsWorkingDay(monday))

	settings.WorkingDays = []int{6}
	assert.True(t, settings.IsWorkingDay(saturday))
	assert.False(t, settings.IsWorkingDay(monday))
}

func TestSettingsLocation(t *testing.T) {
	settings := Settings{}
	loc, err := settings.Location()
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, loc.String())

	settings.Timezone = "Mars/Olympus"
	_, err = settings.Location()
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestSettingsFinalizationHour(t *testing.T) {
	settings := DefaultSettings()
	assert.Equal(t, 18, settings.FinalizationHour())

	settings.TimeWindows.Check3 = TimeWindow{Start: "22:00", End: "23:15"}
	assert.Equal(t, 0, settings.FinalizationHour())
}
