package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ClientsConnected.Inc()
	m.PacketsReceived.WithLabelValues("IMAGE_FRAME").Inc()
	m.HandshakeFailures.WithLabelValues("bad_signature").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
