package dashboard

import (
	"time"

	"github.com/simp-lee/salesboard/internal/domain"
)

// NoTopCourse is reported by TopCourse when the view is empty.
const NoTopCourse = "-"

// SeriesPoint is one labeled bucket of a chart series.
type SeriesPoint struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// Summary holds the four dashboard KPIs.
type Summary struct {
	TodaysRevenue  float64 `json:"todaysRevenue"`
	MonthlyRevenue float64 `json:"monthlyRevenue"`
	TotalSales     int     `json:"totalSales"`
	TopCourse      string  `json:"topCourse"`
}

// Summarize computes all KPIs for view. now is interpreted in its own location.
func Summarize(view []domain.Sale, now time.Time) Summary {
	today := now.Format(time.DateOnly)
	return Summary{
		TodaysRevenue:  TodaysRevenue(view, today),
		MonthlyRevenue: MonthlyRevenue(view, domain.MonthKey(today)),
		TotalSales:     TotalCount(view),
		TopCourse:      TopCourse(view),
	}
}

// TodaysRevenue sums the price of sales dated exactly today ("YYYY-MM-DD").
func TodaysRevenue(view []domain.Sale, today string) float64 {
	var sum float64
	for _, s := range view {
		if s.SaleDate == today {
			sum += s.Price
		}
	}
	return sum
}

// MonthlyRevenue sums the price of sales whose month key equals month ("YYYY-MM").
func MonthlyRevenue(view []domain.Sale, month string) float64 {
	var sum float64
	for _, s := range view {
		if s.MonthKey() == month {
			sum += s.Price
		}
	}
	return sum
}

// TotalCount returns the number of sales in view.
func TotalCount(view []domain.Sale) int {
	return len(view)
}

// TopCourse returns the course with the highest summed price. On ties the
// course seen first wins. An empty view yields NoTopCourse.
func TopCourse(view []domain.Sale) string {
	series := CourseSeries(view)
	if len(series) == 0 {
		return NoTopCourse
	}
	top := series[0]
	for _, p := range series[1:] {
		if p.Total > top.Total {
			top = p
		}
	}
	return top.Label
}

// MonthlySeries groups view by month key, in first-seen order.
func MonthlySeries(view []domain.Sale) []SeriesPoint {
	return groupSum(view, domain.Sale.MonthKey)
}

// CourseSeries groups view by course, in first-seen order.
func CourseSeries(view []domain.Sale) []SeriesPoint {
	return groupSum(view, func(s domain.Sale) string { return s.Course })
}

func groupSum(view []domain.Sale, key func(domain.Sale) string) []SeriesPoint {
	index := make(map[string]int)
	points := make([]SeriesPoint, 0)
	for _, s := range view {
		k := key(s)
		i, ok := index[k]
		if !ok {
			i = len(points)
			index[k] = i
			points = append(points, SeriesPoint{Label: k})
		}
		points[i].Total += s.Price
	}
	return points
}
