package insights

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// Analyzer computes the mock analytics responses. All methods read only the
// embedded sample dataset, so results are cacheable indefinitely except for
// the randomized parts.
type Analyzer struct {
	forecaster *Forecaster
	rand       *rand.Rand
}

func NewAnalyzer(forecaster *Forecaster) *Analyzer {
	return &Analyzer{
		forecaster: forecaster,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type SpendingPrediction struct {
	Message                     string          `json:"message"`
	PredictedTotalNextMonth     string          `json:"predictedTotalNextMonth"`
	PredictedCashFlowNext30Days string          `json:"predictedCashFlowNext30Days"`
	WarningDate                 *string         `json:"warningDate"`
	DailyForecast               []ForecastPoint `json:"daily_forecast"`
	ChartData                   *ChartData      `json:"chartData,omitempty"`
}

// SpendingPrediction asks the external forecaster first and falls back to a
// heuristic over the latest sample month when the service is unavailable.
func (a *Analyzer) SpendingPrediction(ctx context.Context) (*SpendingPrediction, error) {
	expenses, err := LoadSampleExpenses()
	if err != nil {
		return nil, err
	}

	if a.forecaster != nil {
		if result, err := a.forecaster.Forecast(ctx, expenses); err == nil {
			result.ChartData = buildChartData(result.DailyForecast)
			return result, nil
		}
	}

	return a.heuristicPrediction(expenses), nil
}

func (a *Analyzer) heuristicPrediction(expenses []SampleExpense) *SpendingPrediction {
	var spent, income float64
	for _, e := range expenses {
		if !e.inMonth(latestMonth) {
			continue
		}
		if e.IsIncome {
			income += e.Amount
		} else {
			spent += e.Amount
		}
	}

	if spent == 0 && income == 0 {
		return &SpendingPrediction{
			Message:                     "Not enough data from last month for a detailed prediction.",
			PredictedTotalNextMonth:     fmt.Sprintf("%.2f", a.rand.Float64()*200+800),
			PredictedCashFlowNext30Days: fmt.Sprintf("%.2f", a.rand.Float64()*300-150),
			DailyForecast:               []ForecastPoint{},
		}
	}

	// Last month's total, nudged by up to 10% either way.
	predicted := spent * (1 + (a.rand.Float64()*0.2 - 0.1))
	cashFlow := income - predicted

	var warningDate *string
	if cashFlow < 0 {
		next := latestMonth.AddDate(0, 2, a.rand.Intn(28))
		d := next.Format("2006-01-02")
		warningDate = &d
	}

	return &SpendingPrediction{
		Message:                     fmt.Sprintf("Spending prediction based on %s %d data.", latestMonth.Month(), latestMonth.Year()),
		PredictedTotalNextMonth:     fmt.Sprintf("%.2f", predicted),
		PredictedCashFlowNext30Days: fmt.Sprintf("%.2f", cashFlow),
		WarningDate:                 warningDate,
		DailyForecast:               []ForecastPoint{},
	}
}

type Anomaly struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Date        string  `json:"date,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Category    string  `json:"category,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Description string  `json:"description,omitempty"`
	Suggestion  string  `json:"suggestion"`
}

type AnomalyReport struct {
	Message   string    `json:"message"`
	Anomalies []Anomaly `json:"anomalies"`
}

func (a *Analyzer) AnomalyDetection() (*AnomalyReport, error) {
	all, err := LoadSampleExpenses()
	if err != nil {
		return nil, err
	}
	expenses := spendingOnly(all)

	if len(expenses) < 5 {
		return &AnomalyReport{
			Message:   "Not enough expense data to detect anomalies.",
			Anomalies: []Anomaly{},
		}, nil
	}

	anomalies := []Anomaly{}

	// Individual expenses far above their category average.
	type bucket struct {
		total    float64
		expenses []SampleExpense
	}
	byCategory := make(map[string]*bucket)
	for _, e := range expenses {
		b := byCategory[e.Category]
		if b == nil {
			b = &bucket{}
			byCategory[e.Category] = b
		}
		b.total += e.Amount
		b.expenses = append(b.expenses, e)
	}

	for _, category := range sortedKeys(byCategory) {
		b := byCategory[category]
		avg := b.total / float64(len(b.expenses))
		for _, e := range b.expenses {
			if e.Amount > avg*1.8 && e.Amount > 30 {
				anomalies = append(anomalies, Anomaly{
					ID:         fmt.Sprintf("anomaly-%s-%s", category, e.Date),
					Type:       "unusual_spending",
					Date:       e.Date,
					Amount:     e.Amount,
					Category:   category,
					Reason:     fmt.Sprintf("Significantly higher than average spending of %s for %s.", formatCurrency(avg), category),
					Suggestion: "Review this transaction. Was it a one-time purchase or something unexpected?",
				})
			}
		}
	}

	// Month-over-month category jumps.
	priorTotals := categoryTotals(expenses, priorMonth)
	latestTotals := categoryTotals(expenses, latestMonth)

	for _, category := range sortedKeysF(latestTotals) {
		prior, ok := priorTotals[category]
		if !ok || prior == 0 {
			continue
		}
		current := latestTotals[category]
		change := (current - prior) / prior * 100
		if change > 50 && current > 100 {
			anomalies = append(anomalies, Anomaly{
				ID:   fmt.Sprintf("habit-change-%s", category),
				Type: "habit_change",
				Description: fmt.Sprintf("Your spending on '%s' increased by %.0f%% from %s to %s (from %s to %s).",
					category, change, priorMonth.Month(), latestMonth.Month(),
					formatCurrency(prior), formatCurrency(current)),
				Suggestion: "Reflect on this change. Is it temporary or a new spending pattern? Adjust your budget if needed.",
			})
		}
	}

	msg := "No significant anomalies detected in your recent spending."
	if len(anomalies) > 0 {
		msg = "Anomaly detection results based on your data."
	}
	return &AnomalyReport{Message: msg, Anomalies: anomalies}, nil
}

type Optimization struct {
	Category         string `json:"category"`
	CurrentSpending  string `json:"currentSpending,omitempty"`
	SuggestedBudget  string `json:"suggestedBudget,omitempty"`
	PotentialSavings string `json:"potentialSavings"`
	Advice           string `json:"advice"`
}

type OptimizationReport struct {
	Message       string         `json:"message"`
	Optimizations []Optimization `json:"optimizations"`
}

func (a *Analyzer) BudgetOptimization() (*OptimizationReport, error) {
	all, err := LoadSampleExpenses()
	if err != nil {
		return nil, err
	}
	expenses := spendingOnly(all)

	totals := categoryTotals(expenses, latestMonth)
	if len(totals) == 0 {
		return &OptimizationReport{
			Message:       "Not enough data from last month for budget optimization.",
			Optimizations: []Optimization{},
		}, nil
	}

	type catTotal struct {
		category string
		total    float64
	}
	var ranked []catTotal
	var monthTotal float64
	for category, total := range totals {
		ranked = append(ranked, catTotal{category, total})
		monthTotal += total
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].category < ranked[j].category
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	optimizations := []Optimization{}
	for _, ct := range ranked {
		if ct.total <= 50 {
			continue
		}
		suggested := ct.total * 0.8
		savings := ct.total - suggested
		optimizations = append(optimizations, Optimization{
			Category:         ct.category,
			CurrentSpending:  fmt.Sprintf("%.2f", ct.total),
			SuggestedBudget:  fmt.Sprintf("%.2f", suggested),
			PotentialSavings: fmt.Sprintf("%.2f", savings),
			Advice: fmt.Sprintf("You spent %s on %s last month. Try to reduce it by 20%% to %s and save %s.",
				formatCurrency(ct.total), ct.category, formatCurrency(suggested), formatCurrency(savings)),
		})
	}

	if monthTotal > 1000 {
		optimizations = append(optimizations, Optimization{
			Category:         "Overall",
			PotentialSavings: fmt.Sprintf("%.2f", monthTotal*0.05),
			Advice: fmt.Sprintf("Your total spending last month was %s. Consider reviewing all categories for small savings that can add up. The 50/30/20 rule (needs/wants/savings) can be a good guideline.",
				formatCurrency(monthTotal)),
		})
	}

	msg := "No specific optimization suggestions available at the moment."
	if len(optimizations) > 0 {
		msg = "Budget optimization suggestions based on your last month's spending."
	}
	return &OptimizationReport{Message: msg, Optimizations: optimizations}, nil
}

type Nudge struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

type NudgeReport struct {
	Message string  `json:"message"`
	Nudges  []Nudge `json:"nudges"`
}

func (a *Analyzer) BehavioralNudges() *NudgeReport {
	nudges := []Nudge{
		{
			ID:         "nudge-1",
			Type:       "positive_reinforcement",
			Message:    "Great job on keeping your 'Shopping' expenses low this week!",
			Suggestion: "Keep up the good work and consider moving the saved amount to your savings account.",
		},
		{
			ID:         "nudge-2",
			Type:       "goal_reminder",
			Message:    "Remember your goal to save for a vacation? You're 60% there!",
			Suggestion: "An extra $50 this week could get you closer.",
		},
	}
	if a.rand.Float64() > 0.6 {
		nudges = append(nudges, Nudge{
			ID:         "nudge-3",
			Type:       "spending_awareness",
			Message:    "You've made 5 small purchases under $10 this week. These can add up!",
			Suggestion: "Try tracking these 'coffee-run' type expenses for a week to see their total impact.",
		})
	}
	return &NudgeReport{Message: "Behavioral nudges successfully simulated.", Nudges: nudges}
}

type Benchmark struct {
	Category     string `json:"category"`
	YourSpending string `json:"yourSpending"`
	PeerAverage  string `json:"peerAverage"`
	Insight      string `json:"insight"`

	// kept for sorting, not serialized
	spending float64
}

type BenchmarkReport struct {
	Message    string      `json:"message"`
	Benchmarks []Benchmark `json:"benchmarks"`
}

// Simulated peer data. A real deployment would aggregate anonymized user
// spending instead.
var peerAverages = map[string]float64{
	"Groceries":      180.50,
	"Dining Out":     120.00,
	"Transportation": 70.00,
	"Utilities":      150.00,
	"Shopping":       90.00,
	"Entertainment":  75.00,
	"Rent":           1100.00,
}

func (a *Analyzer) Benchmarking() (*BenchmarkReport, error) {
	all, err := LoadSampleExpenses()
	if err != nil {
		return nil, err
	}
	expenses := spendingOnly(all)

	totals := categoryTotals(expenses, latestMonth)
	if len(totals) == 0 {
		return &BenchmarkReport{
			Message:    "Not enough data from last month for benchmarking.",
			Benchmarks: []Benchmark{},
		}, nil
	}

	benchmarks := []Benchmark{}
	for _, category := range sortedKeysF(totals) {
		peerAvg, ok := peerAverages[category]
		if !ok {
			continue
		}
		spending := totals[category]
		insight := "Your spending is similar to your peers."
		switch {
		case spending > peerAvg*1.15:
			insight = fmt.Sprintf("You're spending significantly more than peers in %s. Peers average %s.", category, formatCurrency(peerAvg))
		case spending < peerAvg*0.85:
			insight = fmt.Sprintf("You're spending less than peers in %s! Peers average %s.", category, formatCurrency(peerAvg))
		}
		benchmarks = append(benchmarks, Benchmark{
			Category:     category,
			YourSpending: formatCurrency(spending),
			PeerAverage:  formatCurrency(peerAvg),
			Insight:      insight,
			spending:     spending,
		})
	}

	// Show Rent even when the sample has no spending there, peers do.
	if _, ok := totals["Rent"]; !ok {
		benchmarks = append(benchmarks, Benchmark{
			Category:     "Rent",
			YourSpending: formatCurrency(0),
			PeerAverage:  formatCurrency(peerAverages["Rent"]),
			Insight:      fmt.Sprintf("Peers typically spend around %s on Rent. You reported no spending in this category last month.", formatCurrency(peerAverages["Rent"])),
		})
	}

	sort.Slice(benchmarks, func(i, j int) bool {
		return benchmarks[i].spending > benchmarks[j].spending
	})

	return &BenchmarkReport{
		Message:    "Benchmarking data based on your last month's spending compared to simulated peer averages.",
		Benchmarks: benchmarks,
	}, nil
}

// formatCurrency renders a dollar amount with thousands separators, the way
// the insight texts quote figures.
func formatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := int64(amount)
	cents := int64(amount*100+0.5) - whole*100
	if cents >= 100 {
		whole++
		cents -= 100
	}

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents)
}

func sortedKeys[V any](m map[string]*V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysF(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
