package company

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/shopspring/decimal"
)

const DefaultTimezone = "Asia/Jakarta"

// TimeWindow is a local wall-clock range in "HH:MM", both edges inclusive.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// Bounds returns the window edges as minutes since local midnight.
func (w TimeWindow) Bounds() (start, end int, err error) {
	if start, err = parseClock(w.Start); err != nil {
		return 0, 0, err
	}
	if end, err = parseClock(w.End); err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: %s-%s", ErrInvalidTimeWindow, w.Start, w.End)
	}
	return start, end, nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeWindow, value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

type TimeWindows struct {
	Check1 TimeWindow `json:"check1"`
	Check2 TimeWindow `json:"check2"`
	Check3 TimeWindow `json:"check3"`
}

// For returns the window configured for a slot key ("check1", "check2", "check3").
func (t TimeWindows) For(slot string) (TimeWindow, bool) {
	switch slot {
	case "check1":
		return t.Check1, true
	case "check2":
		return t.Check2, true
	case "check3":
		return t.Check3, true
	}
	return TimeWindow{}, false
}

// GracePeriods are minutes past the window end during which a check-in is late rather than void.
type GracePeriods struct {
	Check1 int `json:"check1"`
	Check2 int `json:"check2"`
	Check3 int `json:"check3"`
}

func (g GracePeriods) For(slot string) int {
	switch slot {
	case "check1":
		return g.Check1
	case "check2":
		return g.Check2
	case "check3":
		return g.Check3
	}
	return 0
}

type PenaltyRules struct {
	// ViolationThresholds maps a violation type to the number of free occurrences per month.
	ViolationThresholds map[string]int `json:"violationThresholds"`
	// Amounts maps a violation type to the fine charged once the threshold is exceeded.
	Amounts map[string]decimal.Decimal `json:"amounts"`
}

func (r PenaltyRules) ThresholdFor(violationType string) int {
	return r.ViolationThresholds[violationType]
}

func (r PenaltyRules) AmountFor(violationType string) decimal.Decimal {
	if amount, ok := r.Amounts[violationType]; ok {
		return amount
	}
	return decimal.Zero
}

// Settings is the single company-wide configuration document.
type Settings struct {
	Timezone          string            `json:"timezone"`
	WorkplaceCenter   *utils.Coordinate `json:"workplace_center,omitempty"`
	WorkplaceRadius   *float64          `json:"workplace_radius,omitempty"`
	GeoFencingEnabled *bool             `json:"geoFencingEnabled,omitempty"`
	TimeWindows       TimeWindows       `json:"timeWindows"`
	GracePeriods      GracePeriods      `json:"gracePeriods"`
	PenaltyRules      PenaltyRules      `json:"penaltyRules"`
	// WorkingDays uses time.Weekday numbering, Sunday = 0.
	WorkingDays []int `json:"workingDays"`
	// Holidays are "YYYY-MM-DD label" entries in the company timezone.
	Holidays    []string           `json:"holidays"`
	LeavePolicy map[string]float64 `json:"leavePolicy"`
}

// DefaultSettings is used when no settings document exists and as the base
// that a stored document is decoded onto.
func DefaultSettings() Settings {
	return Settings{
		Timezone: DefaultTimezone,
		TimeWindows: TimeWindows{
			Check1: TimeWindow{Start: "07:30", End: "08:30", Label: "Morning check-in"},
			Check2: TimeWindow{Start: "12:00", End: "13:00", Label: "Midday check-in"},
			Check3: TimeWindow{Start: "17:00", End: "17:30", Label: "Evening check-out"},
		},
		GracePeriods: GracePeriods{Check1: 30, Check2: 30, Check3: 30},
		PenaltyRules: PenaltyRules{
			ViolationThresholds: map[string]int{
				"late":            3,
				"early_leave":     3,
				"absent":          0,
				"half_day_absent": 0,
			},
			Amounts: map[string]decimal.Decimal{
				"late":            decimal.NewFromInt(50000),
				"early_leave":     decimal.NewFromInt(50000),
				"absent":          decimal.NewFromInt(150000),
				"half_day_absent": decimal.NewFromInt(75000),
			},
		},
		WorkingDays: []int{1, 2, 3, 4, 5},
		LeavePolicy: map[string]float64{
			"full":      12,
			"medical":   14,
			"maternity": 90,
		},
	}
}

// Location loads the configured timezone, falling back to DefaultTimezone when empty.
func (s Settings) Location() (*time.Location, error) {
	name := s.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// GeofenceEnabled defaults to true when the flag is unset.
func (s Settings) GeofenceEnabled() bool {
	return s.GeoFencingEnabled == nil || *s.GeoFencingEnabled
}

// GeofenceConfigured reports whether both a center and a positive radius are present.
func (s Settings) GeofenceConfigured() bool {
	return s.WorkplaceCenter != nil && s.WorkplaceRadius != nil && *s.WorkplaceRadius > 0
}

// IsWorkingDay checks the weekday of local, which must already be in the company timezone.
func (s Settings) IsWorkingDay(local time.Time) bool {
	days := s.WorkingDays
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5}
	}
	for _, d := range days {
		if time.Weekday(d) == local.Weekday() {
			return true
		}
	}
	return false
}

// IsHoliday matches dateKey against the leading date of each holiday entry.
func (s Settings) IsHoliday(dateKey string) bool {
	for _, h := range s.Holidays {
		if strings.HasPrefix(strings.TrimSpace(h), dateKey) {
			return true
		}
	}
	return false
}

// FinalizationHour is the local hour after the last window closes, used to
// schedule end-of-day processing.
func (s Settings) FinalizationHour() int {
	_, end, err := s.TimeWindows.Check3.Bounds()
	if err != nil {
		return 18
	}
	return (end/60 + 1) % 24
}
