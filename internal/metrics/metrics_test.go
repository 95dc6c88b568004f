package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m.StatementsPlanned)
	require.NotNil(t, m.MigrationErrors)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordRun(3, 3, 25*time.Millisecond, "")

	body := scrape(t, m)
	assert.Contains(t, body, "hive_migration_statements_planned_total")
	assert.Contains(t, body, "go_", "expected Go runtime metrics to be registered")
}

func TestRecordRun_EmptyPlanSetsInSync(t *testing.T) {
	m := New()
	m.RecordRun(0, 0, time.Millisecond, "")

	assert.Contains(t, scrape(t, m), "hive_migration_in_sync 1")
}

func TestRecordRun_NonEmptyPlanClearsInSync(t *testing.T) {
	m := New()
	m.RecordRun(2, 2, time.Millisecond, "")

	assert.Contains(t, scrape(t, m), "hive_migration_in_sync 0")
}

func TestRecordRun_ErrorIncrementsStageCounter(t *testing.T) {
	m := New()
	m.RecordRun(2, 1, 10*time.Millisecond, "execute")

	assert.Contains(t, scrape(t, m), `hive_migration_errors_total{stage="execute"} 1`)
}
