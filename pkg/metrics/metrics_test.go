package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGaugeWithoutStorage(t *testing.T) {
	require.NoError(t, Close())
	SetGauge("noop", 1)
	points, err := Points("noop", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSetGaugeAndSelect(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir()))
	defer Close()

	SetGauge("system_cpuuse", 1234)
	points, err := Points("system_cpuuse", time.Minute)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1234.0, points[0].Value)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(BidsTotal)
	BidsTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BidsTotal))
}
