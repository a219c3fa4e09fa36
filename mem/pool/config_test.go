package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Config_DefaultIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64<<10, cfg.PageBytes)
	assert.Equal(t, 8, cfg.MinChunksPerPage)
	assert.Nil(t, cfg.Registry)
}

func Test_Config_PageBytesFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, roundToPage(64<<10), cfg.PageBytesFor(16))
	assert.Equal(t, roundToPage(8*LargeThreshold), cfg.PageBytesFor(LargeThreshold))
	assert.Zero(t, cfg.PageBytesFor(1000)%roundToPage(1))
}

func Test_Config_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative region", func(c *Config) { c.RegionSize = -1 }},
		{"zero page", func(c *Config) { c.PageBytes = 0 }},
		{"zero min chunks", func(c *Config) { c.MinChunksPerPage = 0 }},
		{"region below largest page", func(c *Config) { c.RegionSize = 64 << 10 }},
		{"bad classes", func(c *Config) { c.Classes.GrowthFactor = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrBadConfig)
			_, err := New(cfg)
			require.ErrorIs(t, err, ErrBadConfig)
		})
	}
}

func Test_Config_BucketlessIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegionSize = 0
	require.NoError(t, cfg.Validate())
}
