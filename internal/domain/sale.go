package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// SaleID is the backend-assigned identifier of a sale. It is opaque to this
// application: the backend may send it as a JSON number or a JSON string.
type SaleID string

// UnmarshalJSON accepts a JSON number, a JSON string, or null.
func (id *SaleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("sale id: %w", err)
		}
		*id = SaleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("sale id: %w", err)
	}
	*id = SaleID(n.String())
	return nil
}

// MarshalJSON writes numeric IDs back as JSON numbers and everything else as strings.
func (id SaleID) MarshalJSON() ([]byte, error) {
	if isPlainInteger(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func isPlainInteger(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Sale is a single course-sale transaction as stored by the sales backend.
// SaleDate is always "YYYY-MM-DD", so string order equals chronological order.
type Sale struct {
	ID       SaleID  `json:"id"`
	Name     string  `json:"name"`
	Course   string  `json:"course"`
	Price    float64 `json:"price"`
	SaleDate string  `json:"saleDate"`
}

// MonthKey returns the "YYYY-MM" bucket of the sale date.
func (s Sale) MonthKey() string {
	return MonthKey(s.SaleDate)
}

// MonthKey returns the first seven characters of an ISO date, or the whole
// string when it is shorter.
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// FilterSpec narrows the dashboard to a course and an inclusive date range.
// Empty fields mean "all" / "unbounded".
type FilterSpec struct {
	Course   string `json:"course"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

// IsZero reports whether no filter is applied.
func (f FilterSpec) IsZero() bool {
	return f == FilterSpec{}
}

// SaleDraft is the raw, unparsed input of the sale entry form.
type SaleDraft struct {
	Name     string
	Course   string
	Price    string
	SaleDate string
}

// NewSale is the body posted to the sales backend.
type NewSale struct {
	Name     string  `json:"name"`
	Course   string  `json:"course"`
	Price    float64 `json:"price"`
	SaleDate string  `json:"saleDate"`
}

// SaleRepository defines access to the external sales backend.
type SaleRepository interface {
	List(ctx context.Context) ([]Sale, error)
	Create(ctx context.Context, sale NewSale) error
}
