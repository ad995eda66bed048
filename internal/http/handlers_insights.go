package http

import (
	"net/http"
)

// cachedInsight serves an insight endpoint through the LRU cache. The
// sample dataset is static, so a short TTL only exists to let the
// randomized parts (jitter, optional nudge) rotate.
func (s *Server) cachedInsight(w http.ResponseWriter, r *http.Request, key string, compute func() (any, error)) {
	if cached, ok := s.insightCache.Get(key); ok {
		respondJSON(w, r, http.StatusOK, cached)
		return
	}

	result, err := compute()
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	s.insightCache.Set(key, result)
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleSpendingPrediction(w http.ResponseWriter, r *http.Request) {
	s.cachedInsight(w, r, "spending", func() (any, error) {
		return s.analyzer.SpendingPrediction(r.Context())
	})
}

func (s *Server) handleAnomalyDetection(w http.ResponseWriter, r *http.Request) {
	s.cachedInsight(w, r, "anomaly-detection", func() (any, error) {
		return s.analyzer.AnomalyDetection()
	})
}

func (s *Server) handleBudgetOptimization(w http.ResponseWriter, r *http.Request) {
	s.cachedInsight(w, r, "budget-optimization", func() (any, error) {
		return s.analyzer.BudgetOptimization()
	})
}

func (s *Server) handleBehavioralNudges(w http.ResponseWriter, r *http.Request) {
	s.cachedInsight(w, r, "behavioral-nudges", func() (any, error) {
		return s.analyzer.BehavioralNudges(), nil
	})
}

func (s *Server) handleBenchmarking(w http.ResponseWriter, r *http.Request) {
	s.cachedInsight(w, r, "benchmarking", func() (any, error) {
		return s.analyzer.Benchmarking()
	})
}
