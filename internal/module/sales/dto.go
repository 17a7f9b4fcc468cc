package sales

import (
	"encoding/json"

	"github.com/simp-lee/salesboard/internal/domain"
)

// CreateSaleRequest is the sale entry form and the JSON submit body.
// Price accepts a JSON number or a numeric string.
type CreateSaleRequest struct {
	Name     string      `json:"name" form:"name" binding:"required,max=200"`
	Course   string      `json:"course" form:"course" binding:"required,max=100"`
	Price    json.Number `json:"price" form:"price" binding:"required"`
	SaleDate string      `json:"saleDate" form:"saleDate" binding:"required"`
}

// Draft converts the request to the gateway's input.
func (r CreateSaleRequest) Draft() domain.SaleDraft {
	return domain.SaleDraft{
		Name:     r.Name,
		Course:   r.Course,
		Price:    string(r.Price),
		SaleDate: r.SaleDate,
	}
}
