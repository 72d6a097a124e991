package mood

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func at(date string, hour int) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"day", "week", "month"} {
		if p, err := ParsePeriod(s); err != nil || string(p) != s {
			t.Errorf("ParsePeriod(%q) = %q, %v", s, p, err)
		}
	}
	for _, s := range []string{"", "year", "Day", "weekly"} {
		if _, err := ParsePeriod(s); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("ParsePeriod(%q) error = %v, want ErrInvalidPeriod", s, err)
		}
	}
}

func TestDefaultRange(t *testing.T) {
	today := at("2024-03-31", 15)
	tests := []struct {
		p         Period
		wantStart string
	}{
		{Day, "2024-03-24"},
		{Week, "2024-03-03"},
		{Month, "2024-01-01"},
	}
	for _, tt := range tests {
		start, end := DefaultRange(tt.p, today)
		if got := start.Format(dateLayout); got != tt.wantStart {
			t.Errorf("%s: start = %s, want %s", tt.p, got, tt.wantStart)
		}
		if got := end.Format(dateLayout); got != "2024-03-31" {
			t.Errorf("%s: end = %s", tt.p, got)
		}
	}
}

func TestAggregateSameDay(t *testing.T) {
	records := []Record{
		{Score: 4, Timestamp: at("2024-03-06", 8)},
		{Score: 6, Timestamp: at("2024-03-06", 13)},
		{Score: 8, Timestamp: at("2024-03-06", 22)},
	}

	res := Aggregate(records, Day, at("2024-03-01", 0), at("2024-03-07", 0))

	want := []Bucket{{Period: "2024-03-06", AverageScore: 6.0, Count: 3}}
	if !reflect.DeepEqual(res.Data, want) {
		t.Fatalf("Data = %+v, want %+v", res.Data, want)
	}
	if res.AverageScore != 6.0 {
		t.Errorf("AverageScore = %v, want 6.0", res.AverageScore)
	}
}

func TestAggregateWeekStartsMonday(t *testing.T) {
	// 2024-03-06 is a Wednesday; its week starts Monday 2024-03-04.
	records := []Record{
		{Score: 5, Timestamp: at("2024-03-06", 23)},
		{Score: 7, Timestamp: at("2024-03-04", 0)},
		{Score: 3, Timestamp: at("2024-03-10", 12)}, // Sunday, same week
		{Score: 9, Timestamp: at("2024-03-11", 1)},  // next Monday
	}

	res := Aggregate(records, Week, at("2024-03-01", 0), at("2024-03-31", 0))

	want := []Bucket{
		{Period: "2024-03-04", AverageScore: 5.0, Count: 3},
		{Period: "2024-03-11", AverageScore: 9.0, Count: 1},
	}
	if !reflect.DeepEqual(res.Data, want) {
		t.Fatalf("Data = %+v, want %+v", res.Data, want)
	}
}

func TestAggregateMonthAndRounding(t *testing.T) {
	records := []Record{
		{Score: 1, Timestamp: at("2024-02-10", 0)},
		{Score: 2, Timestamp: at("2024-02-11", 0)},
		{Score: 2, Timestamp: at("2024-02-12", 0)},
		{Score: 10, Timestamp: at("2024-01-31", 0)},
	}

	res := Aggregate(records, Month, at("2024-01-01", 0), at("2024-02-29", 0))

	want := []Bucket{
		{Period: "2024-01", AverageScore: 10.0, Count: 1},
		{Period: "2024-02", AverageScore: 1.67, Count: 3},
	}
	if !reflect.DeepEqual(res.Data, want) {
		t.Fatalf("Data = %+v, want %+v", res.Data, want)
	}
	if res.AverageScore != 3.75 {
		t.Errorf("AverageScore = %v, want 3.75", res.AverageScore)
	}
}

func TestAggregateRangeIsInclusiveDates(t *testing.T) {
	records := []Record{
		{Score: 2, Timestamp: at("2024-03-01", 0)},
		{Score: 4, Timestamp: at("2024-03-07", 23)},
		{Score: 9, Timestamp: at("2024-02-29", 23)},
		{Score: 9, Timestamp: at("2024-03-08", 0)},
	}

	res := Aggregate(records, Day, at("2024-03-01", 12), at("2024-03-07", 0))

	if len(res.Data) != 2 {
		t.Fatalf("got %d buckets, want 2: %+v", len(res.Data), res.Data)
	}
	if res.StartDate != "2024-03-01" || res.EndDate != "2024-03-07" {
		t.Errorf("range = %s..%s", res.StartDate, res.EndDate)
	}
	if res.AverageScore != 3.0 {
		t.Errorf("AverageScore = %v, want 3.0", res.AverageScore)
	}
}

func TestAggregateEmpty(t *testing.T) {
	for _, p := range []Period{Day, Week, Month} {
		res := Aggregate(nil, p, at("2024-03-01", 0), at("2024-03-31", 0))
		if len(res.Data) != 0 || res.Data == nil {
			t.Errorf("%s: Data = %#v, want empty non-nil slice", p, res.Data)
		}
		if res.AverageScore != 0 {
			t.Errorf("%s: AverageScore = %v, want 0", p, res.AverageScore)
		}
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	records := []Record{
		{Score: 3, Timestamp: at("2024-03-02", 1)},
		{Score: 8, Timestamp: at("2024-03-05", 9)},
		{Score: 6, Timestamp: at("2024-03-05", 10)},
		{Score: 2, Timestamp: at("2024-03-20", 4)},
	}
	start, end := at("2024-03-01", 0), at("2024-03-31", 0)

	for _, p := range []Period{Day, Week, Month} {
		a := Aggregate(records, p, start, end)
		b := Aggregate(records, p, start, end)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: results differ: %+v vs %+v", p, a, b)
		}
	}
}
