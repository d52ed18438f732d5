// Package series turns sparse per-bucket query rows into a complete,
// zero-filled time series and repairs the negative-bounce artifact produced
// by the differential bounce encoding on the collection side.
package series

import (
	"time"

	"github.com/benvinegar/counterscale-sub000/internal/timeframe"
)

// Row is one raw grouped result from the analytics store: a bucket timestamp
// plus the visitor/bounce flags it was grouped by and the summed count.
// Bounce carries the stored signed value (-1, 0 or 1).
type Row struct {
	Bucket    time.Time
	IsVisitor bool
	Bounce    int
	Count     int
}

// Bucket is one fixed-width slot in the materialized series.
type Bucket struct {
	Time     time.Time
	Views    int
	Visitors int
	Bounces  int
}

// Materialize produces one Bucket per calendar slot from start through end at
// the given granularity, folding matching rows and zero-filling the rest.
//
// Boundaries are generated in loc so that day buckets land on local midnights.
// The result is strictly chronological; CorrectBounces depends on that order.
func Materialize(rows []Row, start, end time.Time, size timeframe.BucketSize, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}

	grouped := make(map[int64][]Row, len(rows))
	for _, row := range rows {
		key := truncate(row.Bucket, size, loc).Unix()
		grouped[key] = append(grouped[key], row)
	}

	var buckets []Bucket
	for t := truncate(start, size, loc); !t.After(end); t = step(t, size, loc) {
		bucket := Bucket{Time: t}
		for _, row := range grouped[t.Unix()] {
			bucket.Views += row.Count
			if row.IsVisitor {
				bucket.Visitors += row.Count
			}
			bucket.Bounces += row.Bounce * row.Count
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

// CorrectBounces eliminates negative per-bucket bounce totals.
//
// A bounce and its retraction may straddle a bucket boundary: the increment
// lands in bucket N and the -1 in bucket N+1, leaving N+1 with a negative net
// count. The deficit always originates in the immediately preceding bucket
// (the retraction window is a single visit), so a one-step look-back borrow
// restores both buckets. A negative value in the very first bucket has
// nowhere to borrow from and is clamped to zero.
func CorrectBounces(buckets []Bucket) []Bucket {
	for i := range buckets {
		if buckets[i].Bounces >= 0 {
			continue
		}
		if i > 0 {
			buckets[i-1].Bounces += buckets[i].Bounces
		}
		buckets[i].Bounces = 0
	}
	return buckets
}

func truncate(t time.Time, size timeframe.BucketSize, loc *time.Location) time.Time {
	local := t.In(loc)
	if size == timeframe.BucketSizeDay {
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}

func step(t time.Time, size timeframe.BucketSize, loc *time.Location) time.Time {
	local := t.In(loc)
	if size == timeframe.BucketSizeDay {
		// AddDate keeps local midnight across DST transitions.
		return local.AddDate(0, 0, 1)
	}
	return t.Add(time.Hour)
}
