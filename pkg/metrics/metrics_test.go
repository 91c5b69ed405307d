package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	r := prometheus.NewRegistry()
	Register(r)
	assert.Equal(t, r, GetRegisterer())

	ArchiveOperations.WithLabelValues("json", "saving", SuccessLabel).Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(ArchiveOperations.WithLabelValues("json", "saving", SuccessLabel)))

	// a second registration is a no-op
	assert.NotPanics(t, func() { RegisterArchiveMetrics(r) })
}
