package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobFinancials importes del trabajo. Son de solo lectura para el pipeline.
type JobFinancials struct {
	QuotePrice   decimal.Decimal
	AgreedPrice  decimal.Decimal
	SoldPrice    decimal.Decimal
	Deposit1     decimal.Decimal
	Deposit1Paid bool
	Deposit2     decimal.Decimal
	Deposit2Paid bool
}

// Job representa un trabajo creado a partir de un presupuesto aceptado.
// Un cliente puede tener varios trabajos.
type Job struct {
	ID             string
	CustomerID     string
	Reference      string
	Type           string
	Stage          string
	Financials     JobFinancials
	MeasureDate    *time.Time
	DeliveryDate   *time.Time
	CompletionDate *time.Time
	Salesperson    string
	CreatedBy      string
}
