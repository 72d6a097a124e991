// Package mood groups scored mood records into calendar buckets.
package mood

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
)

const dateLayout = "2006-01-02"

var ErrInvalidPeriod = errors.New("period must be one of: day, week, month")

// ParsePeriod validates a caller-supplied period before any data is read.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Day, Week, Month:
		return p, nil
	}
	return "", fmt.Errorf("%w (got %q)", ErrInvalidPeriod, s)
}

// DefaultRange ends on today's date and reaches back 7 days for day buckets,
// 4 weeks for week buckets and 90 days for month buckets.
func DefaultRange(p Period, today time.Time) (start, end time.Time) {
	end = truncateDay(today)
	switch p {
	case Week:
		start = end.AddDate(0, 0, -28)
	case Month:
		start = end.AddDate(0, 0, -90)
	default:
		start = end.AddDate(0, 0, -7)
	}
	return start, end
}

// Record is the part of a mood entry the aggregator reads.
type Record struct {
	Score     int
	Timestamp time.Time
}

type Bucket struct {
	Period       string  `json:"period"`
	AverageScore float64 `json:"average_score"`
	Count        int     `json:"count"`
}

type Result struct {
	Period       Period   `json:"period"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Data         []Bucket `json:"data"`
	AverageScore float64  `json:"average_score"`
}

// Aggregate buckets the records dated within [start, end] (calendar dates,
// inclusive) and averages each bucket and the whole range. p must already be
// valid; an unknown period is bucketed by day. Dates are taken in UTC.
func Aggregate(records []Record, p Period, start, end time.Time) Result {
	start, end = truncateDay(start), truncateDay(end)

	type acc struct{ sum, n int }
	buckets := make(map[string]*acc)
	total, n := 0, 0

	for _, r := range records {
		day := truncateDay(r.Timestamp)
		if day.Before(start) || day.After(end) {
			continue
		}
		key := bucketKey(p, day)
		b, ok := buckets[key]
		if !ok {
			b = &acc{}
			buckets[key] = b
		}
		b.sum += r.Score
		b.n++
		total += r.Score
		n++
	}

	data := make([]Bucket, 0, len(buckets))
	for key, b := range buckets {
		data = append(data, Bucket{
			Period:       key,
			AverageScore: round2(float64(b.sum) / float64(b.n)),
			Count:        b.n,
		})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Period < data[j].Period })

	res := Result{
		Period:    p,
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Data:      data,
	}
	if n > 0 {
		res.AverageScore = round2(float64(total) / float64(n))
	}
	return res
}

func bucketKey(p Period, day time.Time) string {
	switch p {
	case Week:
		// Monday is day 0 of the ISO week.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset).Format(dateLayout)
	case Month:
		return day.Format("2006-01")
	default:
		return day.Format(dateLayout)
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
