package recorder

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"simexec/internal/clock"
	"simexec/internal/obs"
	"simexec/internal/schema"
	"simexec/pkg/exception"
)

type recordingTarget struct {
	calls  []string
	orders []schema.Order
	quotes []schema.Quote
}

func (r *recordingTarget) OnBar(*schema.Bar) { r.calls = append(r.calls, "bar") }
func (r *recordingTarget) OnQuote(q *schema.Quote) {
	r.calls = append(r.calls, "quote")
	r.quotes = append(r.quotes, *q)
}
func (r *recordingTarget) OnTrade(*schema.Trade) { r.calls = append(r.calls, "trade") }
func (r *recordingTarget) OnOrderSubmit(o *schema.Order) error {
	r.calls = append(r.calls, "order")
	r.orders = append(r.orders, *o)
	return nil
}

func writeSession(t *testing.T, dir string) *Journal {
	t.Helper()

	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	j := NewJournal(w, JournalOptions{Source: 2, Clock: clock.NewSim(1), Trace: obs.NewTraceGenerator(100)})

	var md schema.MarketData
	md.Reset()
	md.SetBar(schema.Bar{InstrumentID: 1, Timestamp: 10, Size: 60, Open: 100, High: 101, Low: 99, Close: 100.5})
	md.SetQuote(schema.Quote{InstrumentID: 1, Timestamp: 10, Bid: 100, BidSize: 5, Ask: 100.5, AskSize: 7})
	require.NoError(t, j.AppendMarketData(&md))
	require.NoError(t, j.AppendOrder(schema.Order{ID: 1, InstrumentID: 1, Side: schema.SideBuy, Type: schema.OrdTypeMarket, OrdQty: 5, Text: "first"}))
	require.NoError(t, j.AppendReport(schema.ExecutionReport{ID: 0, OrderID: 1, Status: schema.OrdStatusNew, OrdQty: 5}))
	require.NoError(t, j.AppendTrade(schema.Trade{InstrumentID: 1, Timestamp: 11, Price: 100.25, Size: 1}))

	require.NoError(t, w.Close())
	assert.Equal(t, uint64(5), j.Seq())
	return j
}

func TestJournalReplayOrder(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var reports []schema.ExecutionReport
	target := &recordingTarget{}
	stats, err := Replay(context.Background(), pb, target, ReplayOptions{
		OnReport: func(r schema.ExecutionReport) { reports = append(reports, r) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bar", "quote", "order", "trade"}, target.calls)
	require.Len(t, target.orders, 1)
	assert.Equal(t, "first", target.orders[0].Text)
	assert.Equal(t, 7.0, target.quotes[0].AskSize)
	require.Len(t, reports, 1)
	assert.Equal(t, schema.OrdStatusNew, reports[0].Status)
	assert.Equal(t, ReplayStats{Records: 5, Reports: 1, LastSeq: 5}, stats)
}

func TestReplaySkipsUpToSeq(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	target := &recordingTarget{}
	stats, err := Replay(context.Background(), pb, target, ReplayOptions{AfterSeq: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"trade"}, target.calls)
	assert.Equal(t, uint64(3), stats.Skipped)
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir)

	files, err := filepath.Glob(filepath.Join(dir, "*"+segmentExt))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	raw[recordHeaderSize+3] ^= 0xff

	require.NoError(t, os.WriteFile(files[0], raw, 0o644))

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	r := NewReader(f, ReaderOptions{})
	_, _, err = r.Next()
	assert.True(t, errors.Is(err, exception.ErrJournalChecksum))
}

func TestWriterLifecycle(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	header := schema.NewHeader(schema.EventTrade, 0, 1, 1, 1)
	assert.True(t, errors.Is(w.TryAppend(header, nil), exception.ErrJournalNotStarted))

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, errors.Is(w.Start(context.Background()), exception.ErrJournalAlreadyStarted))
	require.NoError(t, w.TryAppend(header, []byte{1, 2, 3}))

	require.NoError(t, w.Close())
	assert.True(t, errors.Is(w.TryAppend(header, nil), exception.ErrJournalClosed))
	assert.True(t, errors.Is(w.Append(context.Background(), header, nil), exception.ErrJournalClosed))
}

func TestNewWriterWrapsDirError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewWriter(DefaultConfig(filepath.Join(file, "journal")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create journal dir")
	assert.ErrorIs(t, err, syscall.ENOTDIR)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewWriter(Config{})
	assert.True(t, errors.Is(err, exception.ErrInvalidConfig))

	_, err = NewPlayback(PlaybackConfig{Dir: "x", Speed: -1})
	assert.True(t, errors.Is(err, exception.ErrInvalidConfig))
}
