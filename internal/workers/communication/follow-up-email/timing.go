// internal/workers/communication/follow-up-email/timing.go
package followupemail

import "time"

// NextSendTime returns hour:00 on the calendar day after submittedAt, in loc.
// If that instant is not after now it moves one more day out. The result can
// still be in the past when submittedAt is far behind now; callers then send
// immediately.
func NextSendTime(submittedAt time.Time, loc *time.Location, hour int, now time.Time) time.Time {
	local := submittedAt.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	if !target.After(now) {
		target = time.Date(local.Year(), local.Month(), local.Day()+2, hour, 0, 0, 0, loc)
	}
	return target
}

// resolveLocation loads name, or fallback when name is empty. An unknown
// name still yields the fallback zone together with the load error.
func resolveLocation(name, fallback string) (*time.Location, error) {
	var nameErr error
	if name != "" {
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc, nil
		}
		nameErr = err
	}
	loc, err := time.LoadLocation(fallback)
	if err != nil {
		loc = time.UTC
	}
	return loc, nameErr
}
