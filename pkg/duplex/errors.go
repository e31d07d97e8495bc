// ABOUTME: Engine error definitions
// ABOUTME: Sentinels for configuration, bus fault and invariant failures
package duplex

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid engine configuration")
	ErrMisaligned      = errors.New("buffer not word aligned")
	ErrCodecInit       = errors.New("codec initialization failed")
	ErrBusFault        = errors.New("bus fault")
	ErrTransferStopped = errors.New("bus transfer stopped")
	ErrInvariant       = errors.New("buffer ownership invariant violated")
	ErrRunning         = errors.New("engine already started")
	ErrStopped         = errors.New("engine stopped")
)
