package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"simexec/internal/bus"
	"simexec/internal/fill"
	"simexec/internal/schema"
	"simexec/internal/sim"
	"simexec/pkg/exception"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefault(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Registry.InstrumentCount())
	assert.Equal(t, sim.DefaultConfig(), loaded.Executor)
	assert.Equal(t, defaultRingSize, loaded.Bus.RingSize)
	assert.Nil(t, loaded.Journal)
	assert.Nil(t, loaded.Postgres)
	assert.True(t, loaded.Feed.Kinds.Has(schema.KindBar))

	wait, err := loaded.Bus.NewWaitStrategy()
	require.NoError(t, err)
	assert.IsType(t, bus.Yielding{}, wait)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{
		"registry": {
			"venues": [{"name": "SEHK"}],
			"instruments": [{"symbol": "HSI", "venue": "SEHK", "venueSymbol": "HSI.HK"}]
		},
		"executor": {
			"fillOnTrade": false,
			"fillOnBarMode": "next-bar-open",
			"barTrigger": "close",
			"fillSize": "full",
			"cancel": "apply",
			"expiry": "cancel",
			"strictRemove": true
		},
		"risk": {"maxOrderQty": 500, "killSwitch": false},
		"bus": {"ringSize": 256, "wait": "timeout-block", "spinTries": 10, "waitTimeout": "2ms"},
		"journal": {"dir": "/tmp/simexec-journal", "flushInterval": "100ms"},
		"postgres": {"enabled": true, "host": "db", "database": "exec", "batch": 64}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	sym, ok := loaded.Registry.VenueSymbol(1)
	require.True(t, ok)
	assert.Equal(t, "HSI.HK", sym)

	ex := loaded.Executor
	assert.True(t, ex.FillOnQuote)
	assert.False(t, ex.FillOnTrade)
	assert.Equal(t, sim.FillOnBarNextOpen, ex.FillOnBarMode)
	assert.Equal(t, fill.BarTriggerClose, ex.BarTrigger)
	assert.Equal(t, fill.FillSizeFull, ex.FillSize)
	assert.Equal(t, sim.CancelApply, ex.Cancel)
	assert.Equal(t, sim.ExpiryCancel, ex.Expiry)
	assert.True(t, ex.StrictRemove)

	assert.Equal(t, 500.0, loaded.Risk.MaxOrderQty)
	assert.Equal(t, BusSpec{RingSize: 256, Wait: bus.WaitTimeoutBlock, SpinTries: 10, WaitTimeout: 2 * time.Millisecond}, loaded.Bus)

	require.NotNil(t, loaded.Journal)
	assert.Equal(t, 100*time.Millisecond, loaded.Journal.FlushInterval)

	require.NotNil(t, loaded.Postgres)
	assert.Equal(t, "db", loaded.Postgres.Option.Host)
	assert.Equal(t, 64, loaded.Postgres.Batch)

	// the feed section was absent, so its defaults stay
	assert.Equal(t, 100.0, loaded.Feed.BasePrice)
}

func TestResolveRejects(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(*FileConfig)
	}{
		{"no instruments", func(c *FileConfig) { c.Registry.Instruments = nil }},
		{"unknown venue", func(c *FileConfig) { c.Registry.Instruments[0].Venue = "NYSE" }},
		{"duplicate symbol", func(c *FileConfig) { c.Registry.Instruments[1].Symbol = "HSI" }},
		{"ring size", func(c *FileConfig) { c.Bus.RingSize = 1000 }},
		{"wait strategy", func(c *FileConfig) { c.Bus.Wait = "sleep" }},
		{"wait timeout", func(c *FileConfig) { c.Bus.WaitTimeout = "soon" }},
		{"bar mode", func(c *FileConfig) { c.Executor.FillOnBarMode = "vwap" }},
		{"fill size", func(c *FileConfig) { c.Executor.FillSize = "half" }},
		{"feed kind", func(c *FileConfig) { c.Feed.Kinds = []string{"depth"} }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Resolve(cfg)
			assert.True(t, errors.Is(err, exception.ErrInvalidConfig))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
