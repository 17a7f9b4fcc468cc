package dashboard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/simp-lee/salesboard/internal/domain"
)

// State is the dashboard's view state: the active filter and the current page.
// Changing any filter field returns to page 1.
type State struct {
	Filter domain.FilterSpec `json:"filter"`
	Page   int               `json:"page"`
}

// NewState returns the initial state: no filter, page 1.
func NewState() State {
	return State{Page: 1}
}

// SetCourse selects a course ("" for all).
func (s *State) SetCourse(course string) {
	if s.Filter.Course != course {
		s.Filter.Course = course
		s.Page = 1
	}
}

// SetFromDate sets the inclusive lower date bound ("" for unbounded).
func (s *State) SetFromDate(date string) {
	if s.Filter.FromDate != date {
		s.Filter.FromDate = date
		s.Page = 1
	}
}

// SetToDate sets the inclusive upper date bound ("" for unbounded).
func (s *State) SetToDate(date string) {
	if s.Filter.ToDate != date {
		s.Filter.ToDate = date
		s.Page = 1
	}
}

// ClearFilters removes every filter and returns to page 1.
func (s *State) ClearFilters() {
	s.Filter = domain.FilterSpec{}
	s.Page = 1
}

// NextPage advances one page unless already on the last of totalPages.
func (s *State) NextPage(totalPages int) {
	s.Page = Next(s.Page, totalPages)
}

// PrevPage goes back one page unless already on page 1.
func (s *State) PrevPage() {
	s.Page = Prev(s.Page)
}

// Clamp pulls Page into [1, totalPages].
func (s *State) Clamp(totalPages int) {
	s.Page = max(1, min(s.Page, max(totalPages, 1)))
}

// Query encodes the state as URL query parameters, omitting defaults.
func (s State) Query() url.Values {
	q := url.Values{}
	if s.Filter.Course != "" {
		q.Set("course", s.Filter.Course)
	}
	if s.Filter.FromDate != "" {
		q.Set("from", s.Filter.FromDate)
	}
	if s.Filter.ToDate != "" {
		q.Set("to", s.Filter.ToDate)
	}
	if s.Page > 1 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	return q
}

// WithPage returns a copy of s on the given page.
func (s State) WithPage(page int) State {
	s.Page = page
	return s
}

// ParseState reads course, from, to and page from q. Missing or malformed
// pages become 1.
func ParseState(q url.Values) State {
	st := NewState()
	st.Filter = domain.FilterSpec{
		Course:   strings.TrimSpace(q.Get("course")),
		FromDate: strings.TrimSpace(q.Get("from")),
		ToDate:   strings.TrimSpace(q.Get("to")),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 1 {
		st.Page = page
	}
	return st
}
