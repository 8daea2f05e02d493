package dto

// PayrollRunRequest captures POST /payments/runs.
type PayrollRunRequest struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required"`
}
