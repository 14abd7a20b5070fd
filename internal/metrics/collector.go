// Package metrics collects ambient, dependency-free counters for the Core's
// own operations (learn/predict/confirm/refute, reconciliation, path
// simulation) and exports them in Prometheus text/JSON form. No metric here
// is required by any spec invariant; it exists purely for host-side
// observability, grounded on the teacher's atomic-counter +
// hand-rolled-Prometheus-export shape.
package metrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates counters across every component instance sharing a
// process. It is intentionally process-wide, unlike the per-component
// pattern store: a single host binary wants one set of dials, not one per
// component.
type Collector struct {
	core              *CoreMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// CoreMetrics tracks counters for every stage of the control flow in spec §2.
type CoreMetrics struct {
	// Predictor: template lifecycle (§4.5.1, §4.5.3)
	TemplatesLearned    int64 `json:"templates_learned"`
	TemplatesSubsumed   int64 `json:"templates_subsumed"`
	TemplatesDemoted    int64 `json:"templates_demoted"`
	AmbiguousExtraction int64 `json:"ambiguous_extractions"`

	// Predictor: learn/predict outcomes (§4.5.2)
	LearnCalls              int64 `json:"learn_calls"`
	LearnFallbackToConcrete int64 `json:"learn_fallback_to_concrete"`
	PredictCalls            int64 `json:"predict_calls"`
	PredictTemplateHits     int64 `json:"predict_template_hits"`
	PredictConcreteHits     int64 `json:"predict_concrete_hits"`
	PredictMisses           int64 `json:"predict_misses"`
	PredictMaterializeError int64 `json:"predict_materialize_errors"`

	// Predictor: feedback loop (§4.5.3)
	ConfirmCalls int64 `json:"confirm_calls"`
	RefuteCalls  int64 `json:"refute_calls"`

	// Reconciler (§4.2-§4.3)
	ReconcileDiffsPerformed int64 `json:"reconcile_diffs_performed"`
	ReconcilePatchesEmitted int64 `json:"reconcile_patches_emitted"`

	// Conditional Path Simulator (§4.4)
	SimulationsRun                  int64 `json:"simulations_run"`
	SimulatorCombinationsEnumerated int64 `json:"simulator_combinations_enumerated"`
	SimulatorCombinationsPruned     int64 `json:"simulator_combinations_pruned"`
	SimulatorUnevaluableExpressions int64 `json:"simulator_unevaluable_expressions"`

	// Component type registry (§5)
	RegisteredComponentTypes int64 `json:"registered_component_types"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		core:              &CoreMetrics{StartTime: time.Now()},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// RecordLearn records one Learn call, and whether it extracted a template
// or fell through to the concrete fallback (§4.5.1).
func (c *Collector) RecordLearn(templateExtracted bool) {
	atomic.AddInt64(&c.core.LearnCalls, 1)
	if !templateExtracted {
		atomic.AddInt64(&c.core.LearnFallbackToConcrete, 1)
	}
}

// RecordTemplateLearned records a newly stored or replaced template.
func (c *Collector) RecordTemplateLearned() {
	atomic.AddInt64(&c.core.TemplatesLearned, 1)
}

// RecordTemplateSubsumed records a re-extraction that replaced an existing,
// weaker template (§4.5.1's idempotence rule).
func (c *Collector) RecordTemplateSubsumed() {
	atomic.AddInt64(&c.core.TemplatesSubsumed, 1)
}

// RecordTemplateDemoted records a template crossing the demotion threshold
// (§4.5.3).
func (c *Collector) RecordTemplateDemoted() {
	atomic.AddInt64(&c.core.TemplatesDemoted, 1)
}

// RecordAmbiguousExtraction records an extraction heuristic that found more
// than one plausible binding for the same text position (§9 Open Question 1).
func (c *Collector) RecordAmbiguousExtraction() {
	atomic.AddInt64(&c.core.AmbiguousExtraction, 1)
}

// PredictOutcome discriminates how a Predict call was satisfied.
type PredictOutcome int

const (
	PredictMiss PredictOutcome = iota
	PredictTemplateHit
	PredictConcreteHit
	PredictMaterializeFailed
)

// RecordPredict records the outcome of one Predict call.
func (c *Collector) RecordPredict(outcome PredictOutcome) {
	atomic.AddInt64(&c.core.PredictCalls, 1)
	switch outcome {
	case PredictTemplateHit:
		atomic.AddInt64(&c.core.PredictTemplateHits, 1)
	case PredictConcreteHit:
		atomic.AddInt64(&c.core.PredictConcreteHits, 1)
	case PredictMaterializeFailed:
		atomic.AddInt64(&c.core.PredictMaterializeError, 1)
	default:
		atomic.AddInt64(&c.core.PredictMisses, 1)
	}
}

// RecordConfirm records a Confirm call.
func (c *Collector) RecordConfirm() {
	atomic.AddInt64(&c.core.ConfirmCalls, 1)
}

// RecordRefute records a Refute call.
func (c *Collector) RecordRefute() {
	atomic.AddInt64(&c.core.RefuteCalls, 1)
}

// RecordReconcile records one Diff call and the number of patches it
// produced.
func (c *Collector) RecordReconcile(patchCount int) {
	atomic.AddInt64(&c.core.ReconcileDiffsPerformed, 1)
	atomic.AddInt64(&c.core.ReconcilePatchesEmitted, int64(patchCount))
}

// RecordSimulation records one Simulate call over a conditional's gate
// chain: how many combinations were enumerated and how many the pruning
// rules of §4.4 discarded before simulating.
func (c *Collector) RecordSimulation(enumerated, pruned int) {
	atomic.AddInt64(&c.core.SimulationsRun, 1)
	atomic.AddInt64(&c.core.SimulatorCombinationsEnumerated, int64(enumerated))
	atomic.AddInt64(&c.core.SimulatorCombinationsPruned, int64(pruned))
}

// RecordUnevaluableExpression records a condition expression the Simulator
// could not evaluate under the restricted boolean grammar (§7).
func (c *Collector) RecordUnevaluableExpression() {
	atomic.AddInt64(&c.core.SimulatorUnevaluableExpressions, 1)
}

// SetRegisteredComponentTypes records the component type registry's size
// (§5); the Engine sets it after every successful component type
// registration.
func (c *Collector) SetRegisteredComponentTypes(n int) {
	atomic.StoreInt64(&c.core.RegisteredComponentTypes, int64(n))
}

// IncrementCustomCounter increments a custom named counter, for ad hoc
// host-defined instrumentation that doesn't warrant a dedicated field.
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetCustomCounters returns all custom counters.
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// GetMetrics returns a snapshot of every counter.
func (c *Collector) GetMetrics() CoreMetrics {
	return CoreMetrics{
		TemplatesLearned:    atomic.LoadInt64(&c.core.TemplatesLearned),
		TemplatesSubsumed:   atomic.LoadInt64(&c.core.TemplatesSubsumed),
		TemplatesDemoted:    atomic.LoadInt64(&c.core.TemplatesDemoted),
		AmbiguousExtraction: atomic.LoadInt64(&c.core.AmbiguousExtraction),

		LearnCalls:              atomic.LoadInt64(&c.core.LearnCalls),
		LearnFallbackToConcrete: atomic.LoadInt64(&c.core.LearnFallbackToConcrete),
		PredictCalls:            atomic.LoadInt64(&c.core.PredictCalls),
		PredictTemplateHits:     atomic.LoadInt64(&c.core.PredictTemplateHits),
		PredictConcreteHits:     atomic.LoadInt64(&c.core.PredictConcreteHits),
		PredictMisses:           atomic.LoadInt64(&c.core.PredictMisses),
		PredictMaterializeError: atomic.LoadInt64(&c.core.PredictMaterializeError),

		ConfirmCalls: atomic.LoadInt64(&c.core.ConfirmCalls),
		RefuteCalls:  atomic.LoadInt64(&c.core.RefuteCalls),

		ReconcileDiffsPerformed: atomic.LoadInt64(&c.core.ReconcileDiffsPerformed),
		ReconcilePatchesEmitted: atomic.LoadInt64(&c.core.ReconcilePatchesEmitted),

		SimulationsRun:                  atomic.LoadInt64(&c.core.SimulationsRun),
		SimulatorCombinationsEnumerated: atomic.LoadInt64(&c.core.SimulatorCombinationsEnumerated),
		SimulatorCombinationsPruned:     atomic.LoadInt64(&c.core.SimulatorCombinationsPruned),
		SimulatorUnevaluableExpressions: atomic.LoadInt64(&c.core.SimulatorUnevaluableExpressions),

		RegisteredComponentTypes: atomic.LoadInt64(&c.core.RegisteredComponentTypes),

		StartTime: c.core.StartTime,
		Uptime:    time.Since(c.startTime),
	}
}

// PredictionHitRate returns the percentage (0-100) of Predict calls
// satisfied by either a template or a concrete fallback (as opposed to a
// miss).
func (c *Collector) PredictionHitRate() float64 {
	calls := atomic.LoadInt64(&c.core.PredictCalls)
	if calls == 0 {
		return 0.0
	}
	hits := atomic.LoadInt64(&c.core.PredictTemplateHits) + atomic.LoadInt64(&c.core.PredictConcreteHits)
	return float64(hits) / float64(calls) * 100.0
}

// TemplateDemotionRate returns the percentage (0-100) of learned templates
// that have since been demoted.
func (c *Collector) TemplateDemotionRate() float64 {
	learned := atomic.LoadInt64(&c.core.TemplatesLearned)
	if learned == 0 {
		return 0.0
	}
	return float64(atomic.LoadInt64(&c.core.TemplatesDemoted)) / float64(learned) * 100.0
}

// SimulatorPruneRate returns the percentage (0-100) of enumerated
// combinations that pruning discarded before simulation.
func (c *Collector) SimulatorPruneRate() float64 {
	enumerated := atomic.LoadInt64(&c.core.SimulatorCombinationsEnumerated)
	if enumerated == 0 {
		return 0.0
	}
	return float64(atomic.LoadInt64(&c.core.SimulatorCombinationsPruned)) / float64(enumerated) * 100.0
}

// Reset zeroes every counter. Useful for test isolation and for hosts that
// want a rolling window rather than process-lifetime totals.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	*c.core = CoreMetrics{StartTime: time.Now()}
	c.operationCounters = make(map[string]*int64)
	c.startTime = time.Now()
}

// Prometheus export

// PrometheusMetrics represents metrics in Prometheus format.
type PrometheusMetrics struct {
	Metrics []PrometheusMetric `json:"metrics"`
}

// PrometheusMetric is a single named Prometheus sample.
type PrometheusMetric struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"` // counter, gauge, histogram
	Help   string            `json:"help"`
	Value  interface{}       `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// ExportPrometheusMetrics returns metrics in Prometheus format.
func (c *Collector) ExportPrometheusMetrics() *PrometheusMetrics {
	m := c.GetMetrics()

	return &PrometheusMetrics{
		Metrics: []PrometheusMetric{
			{Name: "minimact_templates_learned_total", Type: "counter", Help: "Total templates learned or replaced", Value: m.TemplatesLearned},
			{Name: "minimact_templates_subsumed_total", Type: "counter", Help: "Total re-extractions that replaced a weaker template", Value: m.TemplatesSubsumed},
			{Name: "minimact_templates_demoted_total", Type: "counter", Help: "Total templates demoted past the error-rate threshold", Value: m.TemplatesDemoted},
			{Name: "minimact_ambiguous_extractions_total", Type: "counter", Help: "Total extractions flagged ambiguous", Value: m.AmbiguousExtraction},

			{Name: "minimact_learn_calls_total", Type: "counter", Help: "Total learn() calls", Value: m.LearnCalls},
			{Name: "minimact_learn_concrete_fallback_total", Type: "counter", Help: "Total learn() calls that stored only a concrete fallback", Value: m.LearnFallbackToConcrete},
			{Name: "minimact_predict_calls_total", Type: "counter", Help: "Total predict() calls", Value: m.PredictCalls},
			{Name: "minimact_predict_template_hits_total", Type: "counter", Help: "Total predictions served from a template", Value: m.PredictTemplateHits},
			{Name: "minimact_predict_concrete_hits_total", Type: "counter", Help: "Total predictions served from a concrete fallback", Value: m.PredictConcreteHits},
			{Name: "minimact_predict_misses_total", Type: "counter", Help: "Total predictions with no stored pattern", Value: m.PredictMisses},
			{Name: "minimact_predict_materialize_errors_total", Type: "counter", Help: "Total template materializations that failed", Value: m.PredictMaterializeError},
			{Name: "minimact_prediction_hit_rate_percent", Type: "gauge", Help: "Percentage of predict() calls served by a template or concrete fallback", Value: c.PredictionHitRate()},

			{Name: "minimact_confirm_calls_total", Type: "counter", Help: "Total confirm() calls", Value: m.ConfirmCalls},
			{Name: "minimact_refute_calls_total", Type: "counter", Help: "Total refute() calls", Value: m.RefuteCalls},

			{Name: "minimact_reconcile_diffs_total", Type: "counter", Help: "Total reconciler Diff() calls", Value: m.ReconcileDiffsPerformed},
			{Name: "minimact_reconcile_patches_total", Type: "counter", Help: "Total patches emitted by the reconciler", Value: m.ReconcilePatchesEmitted},

			{Name: "minimact_simulations_run_total", Type: "counter", Help: "Total Simulate() calls", Value: m.SimulationsRun},
			{Name: "minimact_simulator_combinations_enumerated_total", Type: "counter", Help: "Total reachable-combination enumerations", Value: m.SimulatorCombinationsEnumerated},
			{Name: "minimact_simulator_combinations_pruned_total", Type: "counter", Help: "Total combinations discarded by pruning", Value: m.SimulatorCombinationsPruned},
			{Name: "minimact_simulator_prune_rate_percent", Type: "gauge", Help: "Percentage of enumerated combinations pruned", Value: c.SimulatorPruneRate()},
			{Name: "minimact_simulator_unevaluable_expressions_total", Type: "counter", Help: "Total condition expressions outside the restricted grammar", Value: m.SimulatorUnevaluableExpressions},

			{Name: "minimact_registered_component_types", Type: "gauge", Help: "Component types registered in the type registry", Value: m.RegisteredComponentTypes},

			{Name: "minimact_uptime_seconds", Type: "gauge", Help: "Process uptime in seconds", Value: m.Uptime.Seconds()},
		},
	}
}

// ExportPrometheusText returns metrics in Prometheus text exposition format.
func (c *Collector) ExportPrometheusText() string {
	promMetrics := c.ExportPrometheusMetrics()
	var b strings.Builder

	for _, metric := range promMetrics.Metrics {
		b.WriteString(fmt.Sprintf("# HELP %s %s\n", metric.Name, metric.Help))
		b.WriteString(fmt.Sprintf("# TYPE %s %s\n", metric.Name, metric.Type))

		if len(metric.Labels) > 0 {
			labelPairs := make([]string, 0, len(metric.Labels))
			for key, value := range metric.Labels {
				labelPairs = append(labelPairs, fmt.Sprintf(`%s="%s"`, key, value))
			}
			b.WriteString(fmt.Sprintf("%s{%s} %v\n", metric.Name, strings.Join(labelPairs, ","), metric.Value))
		} else {
			b.WriteString(fmt.Sprintf("%s %v\n", metric.Name, metric.Value))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ExportPrometheusJSON returns metrics in JSON form.
func (c *Collector) ExportPrometheusJSON() (string, error) {
	promMetrics := c.ExportPrometheusMetrics()
	bytes, err := json.MarshalIndent(promMetrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("metrics: export prometheus json: %w", err)
	}
	return string(bytes), nil
}
