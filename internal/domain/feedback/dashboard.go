package feedback

import (
	"fmt"
	"sort"
	"time"
)

// DashboardDays is the default window of the dashboard.
const DashboardDays = 30

type TypeCounts struct {
	Compliments int `json:"compliments"`
	Suggestions int `json:"suggestions"`
	Complaints  int `json:"complaints"`
	Questions   int `json:"questions"`
	Others      int `json:"others"`
}

func (t *TypeCounts) add(ft Type) {
	switch ft {
	case TypeCompliment:
		t.Compliments++
	case TypeSuggestion:
		t.Suggestions++
	case TypeComplaint:
		t.Complaints++
	case TypeQuestion:
		t.Questions++
	default:
		t.Others++
	}
}

type DepartmentStats struct {
	Department string `json:"department"`
	Total      int    `json:"total"`
	TypeCounts
	AvgSatisfaction float64 `json:"avg_satisfaction"`
}

type ChartPoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type MonthPoint struct {
	Label string `json:"label"`
	Total int    `json:"total"`
	TypeCounts
}

type Dashboard struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Total int       `json:"total"`
	TypeCounts
	AvgSatisfaction float64           `json:"avg_satisfaction"`
	Departments     []DepartmentStats `json:"departments"`
	ByType          []ChartPoint      `json:"by_type"`
	ByMonth         []MonthPoint      `json:"by_month"`
	Satisfaction    []ChartPoint      `json:"satisfaction"`
}

type ratingSum struct {
	total, count int
}

func (r ratingSum) avg() float64 {
	if r.count == 0 {
		return 0
	}
	return float64(r.total) / float64(r.count)
}

// ComputeDashboard aggregates the feedback rows dated within [from, to].
// Rows outside the window are ignored, so callers may pass a wider set.
func ComputeDashboard(rows []*Feedback, from, to time.Time) *Dashboard {
	d := &Dashboard{From: from, To: to}
	var overall ratingSum
	depts := map[string]*DepartmentStats{}
	deptRatings := map[string]*ratingSum{}
	byType := map[Type]int{}
	months := map[string]*MonthPoint{}
	monthKeys := map[string]time.Time{}
	ratings := map[string]int{}

	for _, f := range rows {
		if f.FeedbackDate.Before(from) || f.FeedbackDate.After(to) {
			continue
		}
		d.Total++
		d.TypeCounts.add(f.FeedbackType)
		byType[f.FeedbackType]++

		score, rated := ratingValue[f.SatisfactionRating]
		if rated {
			overall.total += score
			overall.count++
			ratings[f.SatisfactionRating]++
		}

		if f.Department != nil && *f.Department != "" {
			name := *f.Department
			ds, ok := depts[name]
			if !ok {
				ds = &DepartmentStats{Department: name}
				depts[name] = ds
				deptRatings[name] = &ratingSum{}
			}
			ds.Total++
			ds.TypeCounts.add(f.FeedbackType)
			if rated {
				deptRatings[name].total += score
				deptRatings[name].count++
			}
		}

		y, m, _ := f.FeedbackDate.Date()
		label := fmt.Sprintf("%02d/%d", int(m), y)
		mp, ok := months[label]
		if !ok {
			mp = &MonthPoint{Label: label}
			months[label] = mp
			monthKeys[label] = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		}
		mp.Total++
		mp.TypeCounts.add(f.FeedbackType)
	}

	d.AvgSatisfaction = overall.avg()

	for name, ds := range depts {
		ds.AvgSatisfaction = deptRatings[name].avg()
		d.Departments = append(d.Departments, *ds)
	}
	sort.Slice(d.Departments, func(i, j int) bool { return d.Departments[i].Department < d.Departments[j].Department })

	for _, t := range Types {
		if n := byType[t]; n > 0 {
			d.ByType = append(d.ByType, ChartPoint{Label: string(t), Count: n})
		}
	}

	labels := make([]string, 0, len(months))
	for label := range months {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return monthKeys[labels[i]].Before(monthKeys[labels[j]]) })
	for _, label := range labels {
		d.ByMonth = append(d.ByMonth, *months[label])
	}

	for _, r := range []string{"1", "2", "3", "4", "5"} {
		if n := ratings[r]; n > 0 {
			d.Satisfaction = append(d.Satisfaction, ChartPoint{Label: r, Count: n})
		}
	}
	return d
}
