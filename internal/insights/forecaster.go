package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ForecastPoint is one day of the forecaster's output series.
type ForecastPoint struct {
	DS        string  `json:"ds"`
	Yhat      float64 `json:"yhat"`
	YhatLower float64 `json:"yhat_lower"`
	YhatUpper float64 `json:"yhat_upper"`
	IsHistory bool    `json:"is_history"`
}

// ChartData mirrors the chart.js shape the frontend plots directly.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label                string   `json:"label"`
	Data                 []XYData `json:"data"`
	BorderColor          string   `json:"borderColor"`
	BackgroundColor      string   `json:"backgroundColor"`
	PointRadius          int      `json:"pointRadius"`
	PointBackgroundColor string   `json:"pointBackgroundColor,omitempty"`
	BorderDash           []int    `json:"borderDash,omitempty"`
	Fill                 any      `json:"fill,omitempty"`
}

type XYData struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// Forecaster calls an external forecast service with the sample dataset and
// returns its prediction. Any failure makes the caller fall back to the
// local heuristic.
type Forecaster struct {
	url    string
	client *http.Client
}

func NewForecaster(url string, timeout time.Duration) *Forecaster {
	if url == "" {
		return nil
	}
	return &Forecaster{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *Forecaster) Forecast(ctx context.Context, expenses []SampleExpense) (*SpendingPrediction, error) {
	body, err := json.Marshal(expenses)
	if err != nil {
		return nil, fmt.Errorf("marshal expenses: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call forecast service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned %d", resp.StatusCode)
	}

	var result SpendingPrediction
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	return &result, nil
}

// buildChartData splits the daily series into history and forecast datasets
// plus the prediction band.
func buildChartData(forecast []ForecastPoint) *ChartData {
	if len(forecast) == 0 {
		return nil
	}

	chart := &ChartData{}
	var history, predicted, lower, upper []XYData
	for _, p := range forecast {
		chart.Labels = append(chart.Labels, p.DS)
		if p.IsHistory {
			history = append(history, XYData{X: p.DS, Y: p.Yhat})
		} else {
			predicted = append(predicted, XYData{X: p.DS, Y: p.Yhat})
			lower = append(lower, XYData{X: p.DS, Y: p.YhatLower})
			upper = append(upper, XYData{X: p.DS, Y: p.YhatUpper})
		}
	}

	chart.Datasets = []Dataset{
		{
			Label:                "Historical Spending",
			Data:                 history,
			BorderColor:          "rgba(75, 192, 192, 1)",
			BackgroundColor:      "rgba(75, 192, 192, 0.2)",
			PointRadius:          4,
			PointBackgroundColor: "rgba(75, 192, 192, 1)",
		},
		{
			Label:                "Predicted Spending",
			Data:                 predicted,
			BorderColor:          "rgba(255, 99, 132, 1)",
			BackgroundColor:      "rgba(255, 99, 132, 0.2)",
			PointRadius:          4,
			PointBackgroundColor: "rgba(255, 99, 132, 1)",
			BorderDash:           []int{5, 5},
		},
		{
			Label:           "Prediction Range (Lower)",
			Data:            lower,
			BorderColor:     "rgba(255, 159, 64, 0.5)",
			BackgroundColor: "rgba(255, 159, 64, 0.1)",
			Fill:            "+1",
		},
		{
			Label:           "Prediction Range (Upper)",
			Data:            upper,
			BorderColor:     "rgba(255, 159, 64, 0.5)",
			BackgroundColor: "rgba(255, 159, 64, 0.1)",
			Fill:            false,
		},
	}
	return chart
}
