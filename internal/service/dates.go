package service

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

// DateTimeLayout is the only date format teachers type into the chat.
const DateTimeLayout = "2006-01-02 15:04"

// ParseLocalDateTime reads "YYYY-MM-DD HH:MM" as wall time in loc and returns
// the instant in UTC.
func ParseLocalDateTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, "expected YYYY-MM-DD HH:MM")
	}
	return t.UTC(), nil
}

// FormatLocal renders an instant as "YYYY-MM-DD HH:MM" in loc.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateTimeLayout)
}

// DuePreset is a one-tap deadline offered by the assignment wizard.
type DuePreset struct {
	Label string
	Value string
}

// DuePresets returns today 19:00, tomorrow 18:00 and in three days 12:00,
// all in loc.
func DuePresets(now time.Time, loc *time.Location) []DuePreset {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	at := func(days, hour int) string {
		d := local.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc).Format(DateTimeLayout)
	}
	return []DuePreset{
		{Label: "Сегодня 19:00", Value: at(0, 19)},
		{Label: "Завтра 18:00", Value: at(1, 18)},
		{Label: "Через 3 дня 12:00", Value: at(3, 12)},
	}
}
