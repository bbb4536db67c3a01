// A thin wrapper over the system clock which can be replaced in tests.
package clock

import "time"

type Clock interface {
	CurrentTimeMs() uint64
	CurrentTimeSec() uint64
	Now() time.Time
}

type systemClock struct{}

func NewSystemClock() Clock {
	return &systemClock{}
}

func (sc *systemClock) CurrentTimeMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

func (sc *systemClock) CurrentTimeSec() uint64 {
	return uint64(time.Now().Unix())
}

func (sc *systemClock) Now() time.Time {
	return time.Now()
}

// A clock frozen at a given time, advanced by hand.
type FixedClock struct {
	At time.Time
}

func (fc *FixedClock) CurrentTimeMs() uint64 {
	return uint64(fc.At.UnixMilli())
}

func (fc *FixedClock) CurrentTimeSec() uint64 {
	return uint64(fc.At.Unix())
}

func (fc *FixedClock) Now() time.Time {
	return fc.At
}

func (fc *FixedClock) Advance(d time.Duration) {
	fc.At = fc.At.Add(d)
}
