// Package snowflake provides a time-ordered unique ID generator.
package snowflake

import (
	"math/rand"
	"time"
)

// ID is a 64 bit identifier whose high bits encode the creation time,
// so sorting by ID sorts by creation order.
type ID uint64

// Now returns a new ID for the current time.
func Now() ID {
	return TimeToID(time.Now())
}

// TimeToID converts a time.Time to an ID.
func TimeToID(ts time.Time) ID {
	// 48 bits of milliseconds, 16 bits of random.
	return ID(uint64(ts.UnixNano()/int64(time.Millisecond))<<16 | uint64(rand.Intn(1<<16)))
}

// ToTime returns the time an ID was created.
func (id ID) ToTime() time.Time {
	return time.Unix(0, int64(id>>16)*1e6)
}
