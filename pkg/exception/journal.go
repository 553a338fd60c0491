package exception

import "errors"

var (
	ErrJournalQueueFull       = errors.New("journal: queue full")
	ErrJournalClosed          = errors.New("journal: writer closed")
	ErrJournalNotStarted      = errors.New("journal: writer not started")
	ErrJournalAlreadyStarted  = errors.New("journal: writer already started")
	ErrJournalPayloadTooLarge = errors.New("journal: payload too large")
	ErrJournalInvalidMagic    = errors.New("journal: invalid magic")
	ErrJournalRecordVersion   = errors.New("journal: unsupported record version")
	ErrJournalHeaderSize      = errors.New("journal: invalid header size")
	ErrJournalChecksum        = errors.New("journal: checksum mismatch")
	ErrJournalDecode          = errors.New("journal: payload decode failed")
)
