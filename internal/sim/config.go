package sim

import (
	"strings"

	"github.com/yanun0323/errors"

	"simexec/internal/fill"
	"simexec/pkg/exception"
)

// FillOnQuoteMode selects the reference price taken from quotes.
type FillOnQuoteMode uint8

const (
	FillOnQuoteLast FillOnQuoteMode = iota
)

// FillOnTradeMode selects the reference price taken from trades.
type FillOnTradeMode uint8

const (
	FillOnTradeLast FillOnTradeMode = iota
)

// FillOnBarMode selects the reference price taken from bars.
type FillOnBarMode uint8

const (
	// FillOnBarLastClose evaluates orders against the close of the bar.
	FillOnBarLastClose FillOnBarMode = iota
	// FillOnBarNextOpen first tries the open of the bar that follows the
	// order, then falls back to the close.
	FillOnBarNextOpen
)

// CancelPolicy decides what cancel and cancel/replace requests do.
type CancelPolicy uint8

const (
	// CancelNoop accepts requests and leaves the order untouched.
	CancelNoop CancelPolicy = iota
	// CancelApply removes or amends the order and reports it.
	CancelApply
)

// ExpiryPolicy decides what happens to orders past their ExpireTime.
type ExpiryPolicy uint8

const (
	ExpiryDisabled ExpiryPolicy = iota
	// ExpiryCancel cancels an expired order on the next event of its
	// instrument, before any fill is attempted.
	ExpiryCancel
)

// Config is the executor's option set.
type Config struct {
	FillOnQuote bool
	FillOnTrade bool
	FillOnBar   bool

	FillOnQuoteMode FillOnQuoteMode
	FillOnTradeMode FillOnTradeMode
	FillOnBarMode   FillOnBarMode

	BarTrigger fill.BarTrigger
	FillSize   fill.FillSize

	Cancel CancelPolicy
	Expiry ExpiryPolicy

	// StrictRemove reports removal of an order that is not resting instead
	// of ignoring it.
	StrictRemove bool
}

// DefaultConfig enables every data source with its last-price mode.
func DefaultConfig() Config {
	return Config{
		FillOnQuote:     true,
		FillOnTrade:     true,
		FillOnBar:       true,
		FillOnQuoteMode: FillOnQuoteLast,
		FillOnTradeMode: FillOnTradeLast,
		FillOnBarMode:   FillOnBarLastClose,
		BarTrigger:      fill.BarTriggerHighLow,
		FillSize:        fill.FillSizeDisplayed,
		Cancel:          CancelNoop,
		Expiry:          ExpiryDisabled,
	}
}

func ParseFillOnBarMode(s string) (FillOnBarMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-bar-close", "lastbarclose":
		return FillOnBarLastClose, nil
	case "next-bar-open", "nextbaropen":
		return FillOnBarNextOpen, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidConfig, "fill on bar mode: %q", s)
	}
}

func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "noop":
		return CancelNoop, nil
	case "apply":
		return CancelApply, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidConfig, "cancel policy: %q", s)
	}
}

func ParseExpiryPolicy(s string) (ExpiryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disabled":
		return ExpiryDisabled, nil
	case "cancel":
		return ExpiryCancel, nil
	default:
		return 0, errors.Wrapf(exception.ErrInvalidConfig, "expiry policy: %q", s)
	}
}
