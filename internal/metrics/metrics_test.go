package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewWithRegistryRegistersDistinctMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.SignalsTotal.WithLabelValues("long").Inc()
	m.OrdersTotal.WithLabelValues("filled").Inc()
	m.KillSwitchActive.Set(1)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
