package chaos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

func event(t schema.EventType, seq uint64) Event {
	return Event{Header: schema.NewHeader(t, 0, seq, int64(seq), int64(seq))}
}

func TestPassThroughKeepsEverything(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)

	for seq := range uint64(10) {
		out := e.Process(event(schema.EventQuote, seq))
		require.Len(t, out, 1)
		assert.Equal(t, seq, out[0].Header.Seq)
	}
	assert.Empty(t, e.Flush())
}

func TestDropSparesOrderFlow(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)

	assert.Empty(t, e.Process(event(schema.EventTrade, 1)))
	assert.Len(t, e.Process(event(schema.EventOrder, 2)), 1)
	assert.Len(t, e.Process(event(schema.EventExecutionReport, 3)), 1)
}

func TestReorderWindowKeepsEveryEvent(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, ReorderWindow: 4})
	require.NoError(t, err)

	var seen []uint64
	for seq := range uint64(20) {
		for _, ev := range e.Process(event(schema.EventBar, seq)) {
			seen = append(seen, ev.Header.Seq)
		}
	}
	for _, ev := range e.Flush() {
		seen = append(seen, ev.Header.Seq)
	}

	require.Len(t, seen, 20)
	assert.ElementsMatch(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, seen)
}

func TestDuplicateAndDelay(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3, DuplicateRate: 1, MaxDelay: 1000})
	require.NoError(t, err)

	out := e.Process(event(schema.EventQuote, 5))
	require.Len(t, out, 2)
	assert.GreaterOrEqual(t, out[0].Header.TsRecv, int64(5))
	assert.LessOrEqual(t, out[0].Header.TsRecv, int64(1005))
}

func TestValidate(t *testing.T) {
	for _, cfg := range []Config{{DropRate: 2}, {DuplicateRate: -1}, {MaxDelay: -1}} {
		_, err := NewEngine(cfg)
		assert.True(t, errors.Is(err, exception.ErrInvalidConfig))
	}
}
