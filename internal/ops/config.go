package ops

import (
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"simexec/internal/bus"
	"simexec/internal/fill"
	"simexec/internal/mdg"
	"simexec/internal/recorder"
	"simexec/internal/risk"
	"simexec/internal/schema"
	"simexec/internal/sim"
	"simexec/pkg/conn"
	"simexec/pkg/exception"
)

const defaultRingSize = 1024

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Registry RegistryConfig `json:"registry"`
	Executor ExecutorConfig `json:"executor"`
	Risk     risk.Config    `json:"risk"`
	Bus      BusConfig      `json:"bus"`
	Journal  JournalConfig  `json:"journal"`
	Postgres PostgresConfig `json:"postgres"`
	Feed     FeedConfig     `json:"feed"`
}

// RegistryConfig defines venue and instrument mappings.
type RegistryConfig struct {
	Venues      []VenueConfig      `json:"venues"`
	Instruments []InstrumentConfig `json:"instruments"`
}

// VenueConfig describes a venue entry.
type VenueConfig struct {
	Name string `json:"name"`
}

// InstrumentConfig describes an instrument entry.
type InstrumentConfig struct {
	Symbol      string `json:"symbol"`
	Venue       string `json:"venue"`
	VenueSymbol string `json:"venueSymbol"`
}

// ExecutorConfig is the executor option set. Absent flags keep the defaults.
type ExecutorConfig struct {
	FillOnQuote   *bool  `json:"fillOnQuote"`
	FillOnTrade   *bool  `json:"fillOnTrade"`
	FillOnBar     *bool  `json:"fillOnBar"`
	FillOnBarMode string `json:"fillOnBarMode"`
	BarTrigger    string `json:"barTrigger"`
	FillSize      string `json:"fillSize"`
	Cancel        string `json:"cancel"`
	Expiry        string `json:"expiry"`
	StrictRemove  bool   `json:"strictRemove"`
}

// BusConfig sizes the market data rings and picks the consumer wait strategy.
type BusConfig struct {
	RingSize    int    `json:"ringSize"`
	Wait        string `json:"wait"`
	SpinTries   int    `json:"spinTries"`
	WaitTimeout string `json:"waitTimeout"`
}

// JournalConfig enables the journal when Dir is set.
type JournalConfig struct {
	Dir             string `json:"dir"`
	SegmentMaxBytes int64  `json:"segmentMaxBytes"`
	QueueSize       int    `json:"queueSize"`
	FlushInterval   string `json:"flushInterval"`
}

// PostgresConfig enables report persistence when Enabled is set.
type PostgresConfig struct {
	Enabled bool `json:"enabled"`
	conn.Option
	Batch int `json:"batch"`
}

// FeedConfig drives the synthetic market data generator.
type FeedConfig struct {
	Kinds     []string `json:"kinds"`
	BasePrice float64  `json:"basePrice"`
	Step      float64  `json:"step"`
	Spread    float64  `json:"spread"`
	Size      float64  `json:"size"`
	BarSize   int32    `json:"barSize"`
	Seed      uint64   `json:"seed"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry *schema.Registry
	Executor sim.Config
	Risk     risk.Config
	Bus      BusSpec
	Journal  *recorder.Config
	Postgres *PostgresSpec
	Feed     mdg.GeneratorConfig
}

// BusSpec is the resolved bus section.
type BusSpec struct {
	RingSize    int
	Wait        string
	SpinTries   int
	WaitTimeout time.Duration
}

// NewWaitStrategy builds a fresh strategy; every consumer needs its own.
func (b BusSpec) NewWaitStrategy() (bus.WaitStrategy, error) {
	return bus.ParseWaitStrategy(b.Wait, b.SpinTries, b.WaitTimeout)
}

// PostgresSpec is the resolved postgres section.
type PostgresSpec struct {
	Option conn.Option
	Batch  int
}

// Default returns the configuration used when no file is given: one
// simulated venue with two instruments and every fill source enabled.
func Default() FileConfig {
	return FileConfig{
		Registry: RegistryConfig{
			Venues: []VenueConfig{{Name: "SIM"}},
			Instruments: []InstrumentConfig{
				{Symbol: "HSI", Venue: "SIM"},
				{Symbol: "AAPL", Venue: "SIM"},
			},
		},
		Bus:  BusConfig{RingSize: defaultRingSize, Wait: bus.WaitYield},
		Feed: FeedConfig{Kinds: []string{"bar", "quote", "trade"}, BasePrice: 100, Step: 0.05, Spread: 0.1, Size: 10, BarSize: 60, Seed: 1},
	}
}

// Load reads a JSON config file and resolves it. An empty path resolves
// Default.
func Load(path string) (Loaded, error) {
	if path == "" {
		return Resolve(Default())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	cfg.Registry = RegistryConfig{}
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrapf(err, "decode config %s", path)
	}
	return Resolve(cfg)
}

// LoadRegistry reads a JSON config file and only builds the registry.
func LoadRegistry(path string) (*schema.Registry, error) {
	loaded, err := Load(path)
	if err != nil {
		return nil, err
	}
	return loaded.Registry, nil
}

// Resolve validates a FileConfig and fills in defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}
	executor, err := resolveExecutor(cfg.Executor)
	if err != nil {
		return Loaded{}, err
	}
	busSpec, err := resolveBus(cfg.Bus)
	if err != nil {
		return Loaded{}, err
	}
	journal, err := resolveJournal(cfg.Journal)
	if err != nil {
		return Loaded{}, err
	}
	feed, err := resolveFeed(cfg.Feed)
	if err != nil {
		return Loaded{}, err
	}

	var pg *PostgresSpec
	if cfg.Postgres.Enabled {
		pg = &PostgresSpec{Option: cfg.Postgres.Option, Batch: cfg.Postgres.Batch}
	}

	return Loaded{
		Registry: registry,
		Executor: executor,
		Risk:     cfg.Risk,
		Bus:      busSpec,
		Journal:  journal,
		Postgres: pg,
		Feed:     feed,
	}, nil
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, venue := range cfg.Venues {
		if _, err := reg.AddVenue(venue.Name); err != nil {
			return nil, errors.Wrapf(exception.ErrInvalidConfig, "venue %q: %v", venue.Name, err)
		}
	}
	for _, inst := range cfg.Instruments {
		venueID, ok := reg.VenueIDByName(inst.Venue)
		if !ok {
			return nil, errors.Wrapf(exception.ErrInvalidConfig, "venue not found: %s", inst.Venue)
		}
		if _, err := reg.AddInstrument(inst.Symbol, venueID, inst.VenueSymbol); err != nil {
			return nil, errors.Wrapf(exception.ErrInvalidConfig, "instrument %q: %v", inst.Symbol, err)
		}
	}
	if reg.InstrumentCount() == 0 {
		return nil, errors.Wrap(exception.ErrInvalidConfig, "registry has no instruments")
	}
	return reg, nil
}

func resolveExecutor(cfg ExecutorConfig) (sim.Config, error) {
	out := sim.DefaultConfig()
	if cfg.FillOnQuote != nil {
		out.FillOnQuote = *cfg.FillOnQuote
	}
	if cfg.FillOnTrade != nil {
		out.FillOnTrade = *cfg.FillOnTrade
	}
	if cfg.FillOnBar != nil {
		out.FillOnBar = *cfg.FillOnBar
	}
	out.StrictRemove = cfg.StrictRemove

	var err error
	if out.FillOnBarMode, err = sim.ParseFillOnBarMode(cfg.FillOnBarMode); err != nil {
		return sim.Config{}, err
	}
	if out.BarTrigger, err = fill.ParseBarTrigger(cfg.BarTrigger); err != nil {
		return sim.Config{}, err
	}
	if out.FillSize, err = fill.ParseFillSize(cfg.FillSize); err != nil {
		return sim.Config{}, err
	}
	if out.Cancel, err = sim.ParseCancelPolicy(cfg.Cancel); err != nil {
		return sim.Config{}, err
	}
	if out.Expiry, err = sim.ParseExpiryPolicy(cfg.Expiry); err != nil {
		return sim.Config{}, err
	}
	return out, nil
}

func resolveBus(cfg BusConfig) (BusSpec, error) {
	spec := BusSpec{RingSize: cfg.RingSize, Wait: cfg.Wait, SpinTries: cfg.SpinTries}
	if spec.RingSize == 0 {
		spec.RingSize = defaultRingSize
	}
	if spec.RingSize < 0 || spec.RingSize&(spec.RingSize-1) != 0 {
		return BusSpec{}, errors.Wrapf(exception.ErrInvalidConfig, "ring size %d is not a power of two", spec.RingSize)
	}
	timeout, err := parseDuration("bus.waitTimeout", cfg.WaitTimeout)
	if err != nil {
		return BusSpec{}, err
	}
	spec.WaitTimeout = timeout
	if _, err := spec.NewWaitStrategy(); err != nil {
		return BusSpec{}, errors.Wrapf(exception.ErrInvalidConfig, "wait strategy %q", cfg.Wait)
	}
	return spec, nil
}

func resolveJournal(cfg JournalConfig) (*recorder.Config, error) {
	if cfg.Dir == "" {
		return nil, nil
	}
	out := recorder.DefaultConfig(cfg.Dir)
	if cfg.SegmentMaxBytes > 0 {
		out.SegmentMaxBytes = cfg.SegmentMaxBytes
	}
	if cfg.QueueSize > 0 {
		out.QueueSize = cfg.QueueSize
	}
	flush, err := parseDuration("journal.flushInterval", cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	out.FlushInterval = flush
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func resolveFeed(cfg FeedConfig) (mdg.GeneratorConfig, error) {
	var kinds schema.Kinds
	for _, name := range cfg.Kinds {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "bar":
			kinds = kinds.With(schema.KindBar)
		case "quote":
			kinds = kinds.With(schema.KindQuote)
		case "trade":
			kinds = kinds.With(schema.KindTrade)
		default:
			return mdg.GeneratorConfig{}, errors.Wrapf(exception.ErrInvalidConfig, "feed kind %q", name)
		}
	}
	return mdg.GeneratorConfig{
		Kinds:     kinds,
		BasePrice: cfg.BasePrice,
		Step:      cfg.Step,
		Spread:    cfg.Spread,
		Size:      cfg.Size,
		BarSize:   cfg.BarSize,
		Seed:      cfg.Seed,
	}, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.Wrapf(exception.ErrInvalidConfig, "%s: %q", field, s)
	}
	return d, nil
}
