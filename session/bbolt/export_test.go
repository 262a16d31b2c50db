package bbolt

import "time"

// SetClock replaces the clock used for expiry.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}
