package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue(), true
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue(), true
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount()), true
		}
	}
	return 0, false
}

func TestRecordLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordLoad("tutorial", "ok", 8, 420)
	m.RecordLoad("tutorial", "error", 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexLoads.WithLabelValues("tutorial", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexLoads.WithLabelValues("tutorial", "error")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.CollectionSize.WithLabelValues("tutorial", "documents")))
	assert.Equal(t, 420.0, testutil.ToFloat64(m.CollectionSize.WithLabelValues("tutorial", "terms")))
}

func TestRecordSearch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordSearch("", "miss", 0.002, 0)
	m.RecordSearch("tutorial", "hit", 0.001, 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues(AllScope, "zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues("tutorial", "hit")))
	v, ok := gatherValue(t, reg, "docsearch_search_total_hits")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestRecordCacheLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLoad("x", "error", 0, 0)
		m.RecordSearch("x", "hit", 0.1, 3)
		m.RecordCacheLookup(true)
	})
}
