// Package insights produces spending analytics over an embedded two-month
// sample dataset. The endpoints are demo material: they always analyze the
// sample user's data, never the caller's own expenses.
package insights

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed data/sample_expenses.json
var sampleFS embed.FS

// SampleUserID tags the rows of the embedded dataset used for analysis.
const SampleUserID = "sample_user_id_for_chart_data"

// The dataset covers these two months. Analysis compares them and treats
// the later one as "last month".
var (
	priorMonth  = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	latestMonth = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
)

type SampleExpense struct {
	User     string  `json:"user"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	IsIncome bool    `json:"isIncome"`
}

func (e SampleExpense) parsedDate() (time.Time, error) {
	return time.Parse("2006-01-02", e.Date)
}

func (e SampleExpense) inMonth(month time.Time) bool {
	d, err := e.parsedDate()
	if err != nil {
		return false
	}
	return d.Year() == month.Year() && d.Month() == month.Month()
}

// LoadSampleExpenses returns the embedded dataset rows for the sample user.
func LoadSampleExpenses() ([]SampleExpense, error) {
	raw, err := sampleFS.ReadFile("data/sample_expenses.json")
	if err != nil {
		return nil, fmt.Errorf("read sample dataset: %w", err)
	}

	var all []SampleExpense
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("parse sample dataset: %w", err)
	}

	var out []SampleExpense
	for _, e := range all {
		if e.User == SampleUserID {
			out = append(out, e)
		}
	}
	return out, nil
}

func spendingOnly(expenses []SampleExpense) []SampleExpense {
	var out []SampleExpense
	for _, e := range expenses {
		if !e.IsIncome {
			out = append(out, e)
		}
	}
	return out
}

func categoryTotals(expenses []SampleExpense, month time.Time) map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range expenses {
		if e.inMonth(month) {
			totals[e.Category] += e.Amount
		}
	}
	return totals
}
