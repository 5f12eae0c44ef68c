package syntax

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Preferred datetime layout for label timestamps, for use with
// [time.Time.Format]. Parsing accepts the broader RFC-3339/ISO-8601
// intersection.
const DatetimeLayout = "2006-01-02T15:04:05.999Z"

var datetimeRegex = regexp.MustCompile(`^[0-9]{4}-[01][0-9]-[0-3][0-9]T[0-2][0-9]:[0-6][0-9]:[0-6][0-9](\.[0-9]{1,20})?(Z|([+-][0-2][0-9]:[0-5][0-9]))$`)

// String type for a datetime as carried in label records ('cts' and 'exp'
// fields).
//
// Always use [ParseDatetime] instead of wrapping strings directly,
// especially when working with network input.
type Datetime string

func ParseDatetime(raw string) (Datetime, error) {
	if len(raw) > 64 {
		return "", fmt.Errorf("datetime is too long (64 chars max)")
	}
	if !datetimeRegex.MatchString(raw) {
		return "", fmt.Errorf("datetime syntax didn't validate via regex")
	}
	if strings.HasSuffix(raw, "-00:00") {
		return "", fmt.Errorf("datetime can't use '-00:00' for UTC, must use '+00:00'")
	}
	return Datetime(raw), nil
}

// Parses a raw string all the way to a time.Time in one step.
func ParseDatetimeTime(raw string) (time.Time, error) {
	var zero time.Time
	d, err := ParseDatetime(raw)
	if err != nil {
		return zero, err
	}
	return d.Time()
}

func (d Datetime) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, d.String())
}

func DatetimeNow() Datetime {
	return Datetime(time.Now().UTC().Format(DatetimeLayout))
}

func (d Datetime) String() string {
	return string(d)
}

func (d Datetime) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Datetime) UnmarshalText(text []byte) error {
	datetime, err := ParseDatetime(string(text))
	if err != nil {
		return err
	}
	*d = datetime
	return nil
}
