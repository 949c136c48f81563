package domain

import "time"

// time of day buckets
const (
	BucketMorning   = "morning"
	BucketAfternoon = "afternoon"
	BucketEvening   = "evening"
)

// Edition pins one pipeline run to a (date, bucket) pair. It is captured once
// at run start; a run that crosses midnight keeps the date it started with.
type Edition struct {
	Date   string // 2006-01-02
	Bucket string
	Clock  string // 15:04:05
}

// NewEdition captures the edition for the given local time.
func NewEdition(now time.Time) Edition {
	return Edition{
		Date:   now.Format("2006-01-02"),
		Bucket: TimeOfDay(now),
		Clock:  now.Format("15:04:05"),
	}
}

// TimeOfDay maps a wall-clock hour to its bucket: morning [00,08),
// afternoon [08,16), evening [16,24).
func TimeOfDay(now time.Time) string {
	switch h := now.Hour(); {
	case h < 8:
		return BucketMorning
	case h < 16:
		return BucketAfternoon
	default:
		return BucketEvening
	}
}

// FileName returns the edition markdown file name, e.g. 2026-08-22_morning.md.
func (e Edition) FileName() string {
	return e.Date + "_" + e.Bucket + ".md"
}
