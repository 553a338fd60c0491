package exception

import "errors"

var (
	ErrUnknownInstrument = errors.New("market data: unknown instrument")
	ErrEmptyMarketData   = errors.New("market data: no variant populated")
)
