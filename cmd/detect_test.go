package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/probelab/fathom/internal/config"
)

func TestNewDetector_MapsProbeConfig(t *testing.T) {
	d := newDetector(nil, config.ProbeConfig{
		APIWindowSecs:       9,
		SettleMillis:        250,
		LadderMaxIterations: 6,
		CacheTTLHours:       48,
	})

	assert.Equal(t, 9*time.Second, d.APIWindow)
	assert.Equal(t, 250*time.Millisecond, d.SettleDelay)
	assert.Equal(t, 6, d.LadderMaxIterations)
	assert.Equal(t, 48*time.Hour, d.CacheTTL)
}

func TestNewDetector_KeepsDefaultsOnZeroConfig(t *testing.T) {
	d := newDetector(nil, config.ProbeConfig{})

	assert.Equal(t, 5*time.Second, d.APIWindow)
	assert.Equal(t, 500*time.Millisecond, d.SettleDelay)
	assert.Equal(t, 12, d.LadderMaxIterations)
	assert.Equal(t, 24*time.Hour, d.CacheTTL)
}
