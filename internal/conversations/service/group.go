package service

import (
	"time"

	"rentals/pkg/model"
)

// GroupByDay splits an ordered message list into runs that share a calendar
// date in loc. A new bucket starts whenever a message's date differs from the
// previous message's. A nil loc means UTC.
func GroupByDay(messages []*model.Message, loc *time.Location) []model.DayBucket {
	if loc == nil {
		loc = time.UTC
	}

	buckets := []model.DayBucket{}
	for _, m := range messages {
		day := m.CreatedAt.In(loc).Format(model.DateLayout)
		if n := len(buckets); n > 0 && buckets[n-1].Day == day {
			buckets[n-1].Messages = append(buckets[n-1].Messages, m)
			continue
		}
		buckets = append(buckets, model.DayBucket{Day: day, Messages: []*model.Message{m}})
	}
	return buckets
}
