package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Events(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheus(reg)
	require.NoError(t, err)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.CommandProcessed("SET", 10*time.Microsecond)
	m.CommandProcessed("SET", 20*time.Microsecond)
	m.CommandProcessed("GET", time.Microsecond)
	m.CommandFailed("unknown_command")
	m.ProtocolError()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("SET", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("GET", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("invalid", "unknown_command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.protocolErrors))
	assert.Equal(t, 2, testutil.CollectAndCount(m.commandDuration))
}

func TestPrometheus_TrackKeys(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheus(reg)
	require.NoError(t, err)

	var keys int64 = 3
	require.NoError(t, m.TrackKeys(func() int64 { return keys }))

	expected := `
# HELP memkv_keys Number of keys in the store.
# TYPE memkv_keys gauge
memkv_keys 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "memkv_keys"))

	keys = 5
	expected = strings.Replace(expected, "memkv_keys 3", "memkv_keys 5", 1)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "memkv_keys"))

	// A second registration is ignored
	require.NoError(t, m.TrackKeys(func() int64 { return 0 }))
}

func TestPrometheus_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheus(reg)
	require.NoError(t, err)
	second, err := NewPrometheus(reg)
	require.NoError(t, err)

	first.ProtocolError()
	second.ProtocolError()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.protocolErrors))
	assert.Same(t, first.commandsTotal, second.commandsTotal)
}
