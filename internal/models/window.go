package models

import "time"

// AnyDay matches every weekday.
const AnyDay = -1

// TradeWindow is a wall-clock minute during which trading is allowed.
// Day is AnyDay or a time.Weekday value.
type TradeWindow struct {
	Day    int
	Hour   int
	Minute int
}

// Matches reports whether t falls on the window's minute. t must already be
// in the zone the windows are expressed in.
func (w TradeWindow) Matches(t time.Time) bool {
	if w.Day != AnyDay && int(t.Weekday()) != w.Day {
		return false
	}
	return t.Hour() == w.Hour && t.Minute() == w.Minute
}
