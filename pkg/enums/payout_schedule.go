package enums

import "fmt"

// PayoutSchedule is the cadence a merchant chose for wallet payouts.
type PayoutSchedule string

const (
	PayoutScheduleThreeDays    PayoutSchedule = "three_days"
	PayoutScheduleSevenDays    PayoutSchedule = "seven_days"
	PayoutScheduleFourteenDays PayoutSchedule = "fourteen_days"
	PayoutScheduleThirtyDays   PayoutSchedule = "thirty_days"
)

var validPayoutSchedules = []PayoutSchedule{
	PayoutScheduleThreeDays,
	PayoutScheduleSevenDays,
	PayoutScheduleFourteenDays,
	PayoutScheduleThirtyDays,
}

// Days returns the schedule length in days.
func (p PayoutSchedule) Days() int {
	switch p {
	case PayoutScheduleThreeDays:
		return 3
	case PayoutScheduleSevenDays:
		return 7
	case PayoutScheduleFourteenDays:
		return 14
	case PayoutScheduleThirtyDays:
		return 30
	}
	return 0
}

// String implements fmt.Stringer.
func (p PayoutSchedule) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutSchedule.
func (p PayoutSchedule) IsValid() bool {
	for _, candidate := range validPayoutSchedules {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutSchedule converts raw input into a PayoutSchedule.
func ParsePayoutSchedule(value string) (PayoutSchedule, error) {
	for _, candidate := range validPayoutSchedules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout schedule %q", value)
}
