package common

import "time"

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit used throughout the job/evidence/draft records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
