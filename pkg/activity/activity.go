package activity

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrActivityNotFound = errors.New("activity not found")

const DefaultStatus = "Planned"

// Activity is a budget line item. Empty text fields are stored as NULL.
type Activity struct {
	Id                 int
	Code               string
	InitialActivity    string
	ProposedActivity   string
	ImplementingEntity string
	DeliveryPartner    string
	ResultsArea        string
	Category           string
	BudgetYear1        decimal.Decimal
	BudgetYear2        decimal.Decimal
	BudgetYear3        decimal.Decimal
	BudgetTotal        decimal.Decimal
	BudgetUsed         decimal.Decimal
	Status             string
	Progress           int
	Notes              string
}

// ExecutionPercent is the share of the total budget already used, rounded
// half to even. It is 0 when there is no positive total.
func (a Activity) ExecutionPercent() int {
	if !a.BudgetTotal.IsPositive() {
		return 0
	}
	return int(a.BudgetUsed.Div(a.BudgetTotal).Mul(decimal.NewFromInt(100)).RoundBank(0).IntPart())
}

// withDefaults fills the status and bounds the progress of a new or edited activity.
func (a Activity) withDefaults() Activity {
	if a.Status == "" {
		a.Status = DefaultStatus
	}
	a.Progress = clampProgress(a.Progress)
	return a
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Filter restricts listings. Empty fields match everything.
type Filter struct {
	Status             string `form:"status" json:"status"`
	ImplementingEntity string `form:"implementing_entity" json:"implementing_entity"`
	Category           string `form:"category" json:"category"`
	ResultsArea        string `form:"results_area" json:"results_area"`
}

type Summary struct {
	TotalActivities int
	TotalBudget     decimal.Decimal
	TotalUsed       decimal.Decimal
	// AvgProgress is the mean budget execution percentage.
	AvgProgress float64
}

type StatusRow struct {
	Status string
	Count  int
	Budget decimal.Decimal
}

type Dashboard struct {
	Activities   []Activity
	Summary      Summary
	StatusRows   []StatusRow
	Entities     []string
	Categories   []string
	ResultsAreas []string
}
