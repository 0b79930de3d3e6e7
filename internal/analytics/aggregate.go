// Package analytics turns a URL's raw click history into a domain.Summary.
package analytics

import (
	"sort"

	"shorturl/internal/domain"
)

const dateLayout = "2006-01-02"

type referrerBucket struct {
	referrer string
	count    int64
	firstID  int64
	firstPos int
}

// Aggregate summarizes clicks. It does not truncate: callers pick how many
// days and referrers to show.
func Aggregate(clicks []*domain.Click) domain.Summary {
	summary := domain.Summary{
		TotalClicks:  int64(len(clicks)),
		ClicksByDay:  []domain.DayCount{},
		ClicksByHour: make([]domain.HourCount, 24),
		TopReferrers: []domain.ReferrerRank{},
	}
	for h := range summary.ClicksByHour {
		summary.ClicksByHour[h].Hour = h
	}

	days := map[string]int64{}
	referrers := map[string]*referrerBucket{}

	for i, c := range clicks {
		at := c.ClickedAt.UTC()
		days[at.Format(dateLayout)]++
		summary.ClicksByHour[at.Hour()].Count++

		ref := c.Referrer
		if ref == "" {
			ref = domain.DirectReferrer
		}
		b, ok := referrers[ref]
		if !ok {
			b = &referrerBucket{referrer: ref, firstID: c.ID, firstPos: i}
			referrers[ref] = b
		}
		b.count++
		if c.ID < b.firstID {
			b.firstID = c.ID
		}
	}

	for date, n := range days {
		summary.ClicksByDay = append(summary.ClicksByDay, domain.DayCount{Date: date, Count: n})
	}
	// YYYY-MM-DD sorts chronologically as a string.
	sort.Slice(summary.ClicksByDay, func(i, j int) bool {
		return summary.ClicksByDay[i].Date < summary.ClicksByDay[j].Date
	})

	buckets := make([]*referrerBucket, 0, len(referrers))
	for _, b := range referrers {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.firstID != b.firstID {
			return a.firstID < b.firstID
		}
		return a.firstPos < b.firstPos
	})
	for _, b := range buckets {
		summary.TopReferrers = append(summary.TopReferrers, domain.ReferrerRank{Referrer: b.referrer, Count: b.count})
	}

	return summary
}
