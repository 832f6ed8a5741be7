package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	require.NotNil(t, m)

	m.MailboxDepth("actor-123", 10)

	timer := m.ComputationDuration("actor-123")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.ComputationCompleted("actor-123", true)
	m.ComputationCompleted("actor-123", false)

	m.SemaphoreInflight(5)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["ractor_mailbox_depth"])
	assert.True(t, names["ractor_computation_duration_seconds"])
	assert.True(t, names["ractor_computations_total"])
	assert.True(t, names["ractor_semaphore_inflight"])
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg)

	require.NotNil(t, m)
	require.NotNil(t, m.Actor)

	m.Actor.ComputationCompleted("test", true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
