// Package dashboard derives everything the sales dashboard shows from a flat
// list of sale records: the filtered view, KPIs, chart series, pages, and
// export files. All functions are pure and safe for concurrent use on
// distinct inputs.
package dashboard

import "github.com/simp-lee/salesboard/internal/domain"

// ActiveView returns the records matching spec, in their original order.
// Both date bounds are inclusive and compared as ISO strings.
func ActiveView(records []domain.Sale, spec domain.FilterSpec) []domain.Sale {
	view := make([]domain.Sale, 0, len(records))
	for _, r := range records {
		if matches(r, spec) {
			view = append(view, r)
		}
	}
	return view
}

func matches(r domain.Sale, spec domain.FilterSpec) bool {
	if spec.Course != "" && r.Course != spec.Course {
		return false
	}
	if spec.FromDate != "" && r.SaleDate < spec.FromDate {
		return false
	}
	if spec.ToDate != "" && r.SaleDate > spec.ToDate {
		return false
	}
	return true
}

// CourseOptions returns "" (all courses) followed by every distinct non-empty
// course in first-seen order.
func CourseOptions(records []domain.Sale) []string {
	seen := make(map[string]struct{}, len(records))
	options := []string{""}
	for _, r := range records {
		if r.Course == "" {
			continue
		}
		if _, ok := seen[r.Course]; ok {
			continue
		}
		seen[r.Course] = struct{}{}
		options = append(options, r.Course)
	}
	return options
}
