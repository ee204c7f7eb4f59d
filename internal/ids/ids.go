// ABOUTME: Time-derived ID generation for records and sessions
// ABOUTME: Prefix + base36 millisecond timestamp + sequence, unique within a process

package ids

import (
	"strconv"
	"sync"
	"time"
)

var (
	mu         sync.Mutex
	lastMillis int64 // last issued millisecond stamp
	seq        int64
)

// New returns an ID of the form "<prefix>-<base36 millis>" with a base36
// sequence suffix appended when several IDs are minted in the same
// millisecond. IDs sort by creation time within a prefix.
func New(prefix string, now time.Time) string {
	millis := now.UnixMilli()

	mu.Lock()
	if millis == lastMillis {
		seq++
	} else {
		lastMillis = millis
		seq = 0
	}
	n := seq
	mu.Unlock()

	id := prefix + "-" + strconv.FormatInt(millis, 36)
	if n > 0 {
		id += "-" + strconv.FormatInt(n, 36)
	}
	return id
}
