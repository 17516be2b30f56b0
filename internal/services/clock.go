package services

import "time"

var nowUTC = func() time.Time { return time.Now().UTC() }

// startOfDayUTC is midnight UTC of the day containing t.
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
