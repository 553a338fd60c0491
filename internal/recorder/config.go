package recorder

import (
	"time"

	"github.com/yanun0323/errors"

	"simexec/pkg/exception"
)

const (
	defaultSegmentMaxBytes int64 = 1 << 30
	defaultQueueSize             = 4096
	defaultBufferSize            = 256 * 1024
	defaultFilePrefix            = "journal"
)

var defaultSegmentMaxDuration = 5 * time.Minute

// Config controls how the journal writer rolls and flushes segments.
type Config struct {
	Dir                string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FilePrefix         string
	FlushInterval      time.Duration
	SyncInterval       time.Duration
	CopyPayload        bool
}

// DefaultConfig returns segment limits suited to a single trading session.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		SegmentMaxBytes:    defaultSegmentMaxBytes,
		SegmentMaxDuration: defaultSegmentMaxDuration,
		QueueSize:          defaultQueueSize,
		BufferSize:         defaultBufferSize,
		FilePrefix:         defaultFilePrefix,
	}
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: SegmentMaxBytes must be > 0")
	}
	if c.QueueSize <= 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: QueueSize must be > 0")
	}
	if c.BufferSize <= 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: BufferSize must be > 0")
	}
	if c.FilePrefix == "" {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: FilePrefix is empty")
	}
	if c.FlushInterval < 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: FlushInterval must be >= 0")
	}
	if c.SyncInterval < 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "recorder: SyncInterval must be >= 0")
	}
	return nil
}
