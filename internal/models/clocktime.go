package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day stored as whole seconds since
// midnight. It maps onto SQL TIME columns and carries no date or zone.
type ClockTime int

// NewClockTime builds a ClockTime from hour, minute and second components.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(hour*3600 + minute*60 + second)
}

// ClockTimeOf extracts the time-of-day from t, truncated to whole seconds.
func ClockTimeOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

// ParseClockTime parses "15:04" or "15:04:05" strings.
func ParseClockTime(raw string) (ClockTime, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return ClockTimeOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q", raw)
}

func (c ClockTime) Hour() int   { return int(c) / 3600 }
func (c ClockTime) Minute() int { return int(c) % 3600 / 60 }
func (c ClockTime) Second() int { return int(c) % 60 }

// String renders the full "15:04:05" form.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
}

// Short renders the "15:04" form used on list screens and CSV rows.
func (c ClockTime) Short() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MinutesUntil returns the whole minutes from c to other.
func (c ClockTime) MinutesUntil(other ClockTime) int {
	return (int(other) - int(c)) / 60
}

// MarshalJSON renders the short form; null handling is left to pointer fields.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.Short() + `"`), nil
}

// UnmarshalJSON accepts "15:04" or "15:04:05".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return fmt.Errorf("invalid clock time %s", raw)
	}
	parsed, err := ParseClockTime(raw[1 : len(raw)-1])
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer for TIME columns.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner. Postgres drivers hand TIME values back as
// strings, byte slices or time.Time depending on configuration.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("cannot scan NULL into ClockTime; use *ClockTime")
	case time.Time:
		*c = ClockTimeOf(v)
		return nil
	case []byte:
		parsed, err := ParseClockTime(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case string:
		parsed, err := ParseClockTime(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

// MinutesAsClock renders a minute total in the H:MM form used by the monthly
// list and CSV export, e.g. 90 -> "1:30".
func MinutesAsClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
