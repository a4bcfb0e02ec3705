package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPProfConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     PProfConfig
		wantErr bool
	}{
		{name: "Success - disabled ignores address", cfg: PProfConfig{Enabled: false, Addr: "garbage"}},
		{name: "Success - host and port", cfg: PProfConfig{Enabled: true, Addr: "localhost:6060"}},
		{name: "Success - port only", cfg: PProfConfig{Enabled: true, Addr: ":6060"}},
		{name: "Failure - missing port", cfg: PProfConfig{Enabled: true, Addr: "localhost"}, wantErr: true},
		{name: "Failure - empty", cfg: PProfConfig{Enabled: true}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShutdownConfig_Context(t *testing.T) {
	// given
	cfg := ShutdownConfig{Timeout: time.Minute}
	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()

	// when
	ctx, cancel := cfg.Context(parent)
	defer cancel()

	// then
	require.NoError(t, ctx.Err(), "shutdown context must survive the cancelled parent")
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	assert.Error(t, (&ShutdownConfig{}).Validate())
}
