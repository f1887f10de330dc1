package executor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// kindStat accumulates the running totals `_record_operation_metrics`
// keeps per "{db_type}_{complexity}" key.
type kindStat struct {
	totalExecutions      int
	successfulExecutions int
	totalDuration        time.Duration
}

func (s *kindStat) avgDuration() time.Duration {
	if s.totalExecutions == 0 {
		return 0
	}
	return s.totalDuration / time.Duration(s.totalExecutions)
}

func (s *kindStat) successRate() float64 {
	if s.totalExecutions == 0 {
		return 0
	}
	return float64(s.successfulExecutions) / float64(s.totalExecutions)
}

type batchPerformance struct {
	successRate float64
	duration    time.Duration
}

// adaptiveStats is the Go rendering of operation_metrics +
// batch_performance: per-(kind,complexity) running stats, plus a
// rolling log of whole-plan executions used to decide whether to
// widen or narrow the backend semaphores before the next plan runs.
type adaptiveStats struct {
	mu           sync.Mutex
	byKey        map[string]*kindStat
	batchHistory []batchPerformance
}

func newAdaptiveStats() *adaptiveStats {
	return &adaptiveStats{byKey: map[string]*kindStat{}}
}

func (a *adaptiveStats) record(kind string, complexity int, duration time.Duration, success bool) {
	key := statKey(kind, complexity)
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.byKey[key]
	if !ok {
		s = &kindStat{}
		a.byKey[key] = s
	}
	s.totalExecutions++
	s.totalDuration += duration
	if success {
		s.successfulExecutions++
	}
}

func (a *adaptiveStats) recordBatch(successRate float64, duration time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batchHistory = append(a.batchHistory, batchPerformance{successRate: successRate, duration: duration})
}

// recentAverages reports avg success rate and avg duration over the
// last 5 recorded plan executions (`recent_batches = ...[-5:]`), and
// whether at least 3 have been recorded yet
// (`_perform_adaptive_adjustments`'s "need more data" guard).
func (a *adaptiveStats) recentAverages() (avgSuccessRate float64, avgDuration time.Duration, enough bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.batchHistory) < 3 {
		return 0, 0, false
	}
	recent := a.batchHistory
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	var sumRate float64
	var sumDuration time.Duration
	for _, b := range recent {
		sumRate += b.successRate
		sumDuration += b.duration
	}
	n := time.Duration(len(recent))
	return sumRate / float64(len(recent)), sumDuration / n, true
}

func statKey(kind string, complexity int) string {
	return kind + "_" + complexityName(complexity)
}

func complexityName(c int) string {
	switch c {
	case 1:
		return "SIMPLE"
	case 2:
		return "MEDIUM"
	case 3:
		return "COMPLEX"
	case 4:
		return "HEAVY"
	default:
		return "SIMPLE"
	}
}

// adjust performs the increase/decrease decision from
// `_perform_adaptive_adjustments`: >0.95 success and <2s average
// duration widens every backend semaphore; <0.80 success or >10s
// average duration narrows every backend semaphore. Anything in
// between is left unchanged.
func (e *Executor) adjust() {
	avgSuccessRate, avgDuration, enough := e.stats.recentAverages()
	if !enough {
		return
	}
	switch {
	case avgSuccessRate > 0.95 && avgDuration < 2*time.Second:
		if changed := e.gates.increaseLimits(); len(changed) > 0 {
			e.logger.Info("widened backend parallelism limits", zap.Any("changed", changed))
		}
	case avgSuccessRate < 0.80 || avgDuration > 10*time.Second:
		if changed := e.gates.decreaseLimits(); len(changed) > 0 {
			e.logger.Info("narrowed backend parallelism limits", zap.Any("changed", changed))
		}
	}
}
