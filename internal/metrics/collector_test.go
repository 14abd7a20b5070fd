package metrics

import (
	"strings"
	"testing"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("NewCollector() returned nil")
	}
	if c.operationCounters == nil {
		t.Fatal("operationCounters not initialized")
	}

	m := c.GetMetrics()
	if m.LearnCalls != 0 || m.PredictCalls != 0 {
		t.Errorf("expected zeroed counters, got %+v", m)
	}
}

func TestLearnAndTemplateMetrics(t *testing.T) {
	c := NewCollector()

	c.RecordLearn(true)
	c.RecordTemplateLearned()
	c.RecordLearn(false)

	m := c.GetMetrics()
	if m.LearnCalls != 2 {
		t.Errorf("expected 2 learn calls, got %d", m.LearnCalls)
	}
	if m.LearnFallbackToConcrete != 1 {
		t.Errorf("expected 1 concrete fallback, got %d", m.LearnFallbackToConcrete)
	}
	if m.TemplatesLearned != 1 {
		t.Errorf("expected 1 template learned, got %d", m.TemplatesLearned)
	}
}

func TestPredictMetricsAndHitRate(t *testing.T) {
	c := NewCollector()

	c.RecordPredict(PredictTemplateHit)
	c.RecordPredict(PredictTemplateHit)
	c.RecordPredict(PredictConcreteHit)
	c.RecordPredict(PredictMiss)

	m := c.GetMetrics()
	if m.PredictCalls != 4 {
		t.Errorf("expected 4 predict calls, got %d", m.PredictCalls)
	}
	if m.PredictTemplateHits != 2 || m.PredictConcreteHits != 1 || m.PredictMisses != 1 {
		t.Errorf("unexpected breakdown: %+v", m)
	}

	if rate := c.PredictionHitRate(); rate != 75.0 {
		t.Errorf("expected 75%% hit rate, got %f", rate)
	}
}

func TestDemotionRate(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 10; i++ {
		c.RecordTemplateLearned()
	}
	c.RecordTemplateDemoted()
	c.RecordTemplateDemoted()

	if rate := c.TemplateDemotionRate(); rate != 20.0 {
		t.Errorf("expected 20%% demotion rate, got %f", rate)
	}
}

func TestSimulatorMetricsAndPruneRate(t *testing.T) {
	c := NewCollector()

	c.RecordSimulation(8, 6)
	c.RecordUnevaluableExpression()

	m := c.GetMetrics()
	if m.SimulationsRun != 1 || m.SimulatorCombinationsEnumerated != 8 || m.SimulatorCombinationsPruned != 6 {
		t.Errorf("unexpected simulator metrics: %+v", m)
	}
	if m.SimulatorUnevaluableExpressions != 1 {
		t.Errorf("expected 1 unevaluable expression, got %d", m.SimulatorUnevaluableExpressions)
	}
	if rate := c.SimulatorPruneRate(); rate != 75.0 {
		t.Errorf("expected 75%% prune rate, got %f", rate)
	}
}

func TestReconcileAndRegistryMetrics(t *testing.T) {
	c := NewCollector()

	c.RecordReconcile(3)
	c.RecordReconcile(2)
	c.SetRegisteredComponentTypes(5)

	m := c.GetMetrics()
	if m.ReconcileDiffsPerformed != 2 || m.ReconcilePatchesEmitted != 5 {
		t.Errorf("unexpected reconcile metrics: %+v", m)
	}
	if m.RegisteredComponentTypes != 5 {
		t.Errorf("expected 5 registered component types, got %d", m.RegisteredComponentTypes)
	}
}

func TestCustomCounters(t *testing.T) {
	c := NewCollector()

	c.IncrementCustomCounter("host_specific_event")
	c.IncrementCustomCounter("host_specific_event")

	counters := c.GetCustomCounters()
	if counters["host_specific_event"] != 2 {
		t.Errorf("expected custom counter 2, got %d", counters["host_specific_event"])
	}
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.RecordLearn(true)
	c.IncrementCustomCounter("x")

	c.Reset()

	m := c.GetMetrics()
	if m.LearnCalls != 0 {
		t.Errorf("expected learn calls reset to 0, got %d", m.LearnCalls)
	}
	if len(c.GetCustomCounters()) != 0 {
		t.Errorf("expected custom counters cleared")
	}
}

func TestExportPrometheusText(t *testing.T) {
	c := NewCollector()
	c.RecordLearn(true)
	c.RecordTemplateLearned()
	c.RecordPredict(PredictTemplateHit)

	text := c.ExportPrometheusText()
	if !strings.Contains(text, "minimact_learn_calls_total") {
		t.Errorf("expected learn_calls_total in Prometheus text, got:\n%s", text)
	}
	if !strings.Contains(text, "# TYPE minimact_predict_calls_total counter") {
		t.Errorf("expected predict_calls_total TYPE line, got:\n%s", text)
	}
}

func TestExportPrometheusJSON(t *testing.T) {
	c := NewCollector()
	c.RecordLearn(true)

	out, err := c.ExportPrometheusJSON()
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	if !strings.Contains(out, "minimact_learn_calls_total") {
		t.Errorf("expected learn_calls_total in JSON export, got:\n%s", out)
	}
}
