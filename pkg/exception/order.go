package exception

import "errors"

var (
	ErrOrderNil         = errors.New("order: nil order")
	ErrOrderDuplicate   = errors.New("order: already resting")
	ErrOrderNotFound    = errors.New("order: not found")
	ErrOrderTerminal    = errors.New("order: already in terminal status")
	ErrOrderInvalidQty  = errors.New("order: replace quantity below filled quantity")
	ErrOrderUnknownType = errors.New("order: unsupported type")
	ErrReportOutOfOrder = errors.New("report: id not increasing")
	ErrReportOverfill   = errors.New("report: filled quantity exceeds order quantity")
	ErrReportRegression = errors.New("report: filled quantity decreased")
	ErrReportTransition = errors.New("report: invalid status transition")
)
