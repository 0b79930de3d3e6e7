package domain

// DirectReferrer is the bucket for clicks that carried no Referer header.
const DirectReferrer = "direct"

// Summary is the aggregated click history of one URL.
type Summary struct {
	TotalClicks  int64          `json:"total_clicks"`
	ClicksByDay  []DayCount     `json:"clicks_by_day"`  // UTC dates, ascending, sparse
	ClicksByHour []HourCount    `json:"clicks_by_hour"` // always 24 entries, hour 0..23
	TopReferrers []ReferrerRank `json:"top_referrers"`  // count desc, first-seen breaks ties
}

type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type ReferrerRank struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// LastDays returns at most the last n day entries (all of them when n <= 0).
func (s *Summary) LastDays(n int) []DayCount {
	if n <= 0 || len(s.ClicksByDay) <= n {
		return s.ClicksByDay
	}
	return s.ClicksByDay[len(s.ClicksByDay)-n:]
}

// TopN returns at most the n highest-ranked referrers (all of them when n <= 0).
func (s *Summary) TopN(n int) []ReferrerRank {
	if n <= 0 || len(s.TopReferrers) <= n {
		return s.TopReferrers
	}
	return s.TopReferrers[:n]
}
