package domain

import "time"

// TaxReturn is a yearly filing record tied to exactly one client. The
// three category mappings (income sources, deductions, credits) map a
// category name to a dollar amount and are persisted as JSON text.
type TaxReturn struct {
	ID                int64
	ClientID          int64
	TaxYear           int
	FilingStatus      string
	IncomeSources     map[string]float64
	Deductions        map[string]float64
	Credits           map[string]float64
	TaxesPaid         float64
	TaxLiability      float64
	RefundOrAmountDue float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TaxReturnInput carries the caller-supplied fields for creating a tax
// return. Nil mappings are treated as empty.
type TaxReturnInput struct {
	ClientID          int64
	TaxYear           int
	FilingStatus      string
	IncomeSources     map[string]float64
	Deductions        map[string]float64
	Credits           map[string]float64
	TaxesPaid         float64
	TaxLiability      float64
	RefundOrAmountDue float64
}
