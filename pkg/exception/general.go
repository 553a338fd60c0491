// Package exception holds the sentinel errors of every area. Sentinels are
// plain errors so both the standard errors.Is and github.com/yanun0323/errors.Is
// match them through any number of yanun0323/errors wraps.
package exception

import "errors"

// General errors
var (
	ErrNilInstance          = errors.New("nil instance")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrUnimplementedFeature = errors.New("unimplemented feature")
	ErrInvalidConfig        = errors.New("invalid config")
)
