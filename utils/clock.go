package utils

import "time"

// UserLocation resolves a stored IANA zone name. Unknown or empty names fall
// back to UTC rather than failing — cycle math must always produce a date.
func UserLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UserToday returns the calendar date of nowUTC in the user's zone,
// normalized to midnight UTC so it can serve as a cycle key.
func UserToday(tz string, nowUTC time.Time) time.Time {
	local := nowUTC.In(UserLocation(tz))
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UserWeekStart returns the Monday of the current week in the user's zone
// (Monday = day 0), normalized like UserToday.
func UserWeekStart(tz string, nowUTC time.Time) time.Time {
	today := UserToday(tz, nowUTC)
	offset := (int(today.Weekday()) + 6) % 7
	return today.AddDate(0, 0, -offset)
}

// SecondsUntilDailyReset returns how long until the user's next local
// midnight, when the daily cycle date rolls over.
func SecondsUntilDailyReset(tz string, nowUTC time.Time) int64 {
	loc := UserLocation(tz)
	local := nowUTC.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return int64(next.Sub(local).Seconds())
}

// SecondsUntilWeeklyReset returns how long until the next Monday midnight in
// the user's zone.
func SecondsUntilWeeklyReset(tz string, nowUTC time.Time) int64 {
	loc := UserLocation(tz)
	local := nowUTC.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	days := 7 - (int(local.Weekday())+6)%7
	next := midnight.AddDate(0, 0, days)
	return int64(next.Sub(local).Seconds())
}
