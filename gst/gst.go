// Package gst implements Galileo System Time arithmetic.
//
// GST is a (week number, time-of-week) pair. Time-of-week is always a
// multiple of 30 seconds at the subframe boundaries this engine operates
// on; all comparisons and subtractions below are modulo the week rollover
// so that late or wrapped-around arrivals near a week boundary compare
// correctly.
package gst

import "fmt"

// SubframeSeconds is the fixed duration of one Galileo I/NAV subframe.
const SubframeSeconds = 30

// secondsPerWeek is the number of seconds in a Galileo week.
const secondsPerWeek = 7 * 24 * 3600

// Time is a Galileo System Time instant, truncated to a subframe boundary.
type Time struct {
	WN  uint32 // week number
	TOW uint32 // time of week, seconds, multiple of SubframeSeconds
}

// New builds a Time, validating that tow falls on a subframe boundary.
func New(wn, tow uint32) (Time, error) {
	if tow >= secondsPerWeek {
		return Time{}, fmt.Errorf("gst: time-of-week %d out of range", tow)
	}
	if tow%SubframeSeconds != 0 {
		return Time{}, fmt.Errorf("gst: time-of-week %d is not a subframe boundary", tow)
	}
	return Time{WN: wn, TOW: tow}, nil
}

// absolute returns t expressed as a single monotonic count of subframes
// since WN=0, TOW=0. This is only meaningful for differencing two GST
// values that are within a handful of weeks of each other, which is the
// only use this engine has for it (late-arrival tolerance, DSM timeouts).
func (t Time) absolute() int64 {
	return int64(t.WN)*int64(secondsPerWeek/SubframeSeconds) + int64(t.TOW/SubframeSeconds)
}

// Subframes returns the number of subframes between t and u (t - u),
// positive if t is later than u. Correct across week rollover as long as
// the two instants are within about 4000 years' worth of subframes of one
// another (i.e. always, for any real input).
func (t Time) Subframes(u Time) int64 {
	return t.absolute() - u.absolute()
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool {
	return t.absolute() < u.absolute()
}

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool {
	return t.absolute() > u.absolute()
}

// Equal reports whether t and u denote the same subframe.
func (t Time) Equal(u Time) bool {
	return t.absolute() == u.absolute()
}

// Add returns the GST n subframes after t (n may be negative).
func (t Time) Add(n int64) Time {
	abs := t.absolute() + n
	if abs < 0 {
		abs = 0
	}
	subframesPerWeek := int64(secondsPerWeek / SubframeSeconds)
	wn := abs / subframesPerWeek
	tow := (abs % subframesPerWeek) * SubframeSeconds
	return Time{WN: uint32(wn), TOW: uint32(tow)}
}

// String renders t as "WN:TOW".
func (t Time) String() string {
	return fmt.Sprintf("%d:%05d", t.WN, t.TOW)
}
