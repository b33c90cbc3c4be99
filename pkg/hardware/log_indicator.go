package hardware

import "github.com/rs/zerolog"

// LogIndicator reports status changes through the logger when no LED is wired.
type LogIndicator struct {
	logger zerolog.Logger
	last   Status
}

func NewLogIndicator(logger zerolog.Logger) *LogIndicator {
	return &LogIndicator{logger: logger, last: StatusOff}
}

func (l *LogIndicator) Show(status Status) error {
	if status == l.last {
		return nil
	}
	l.logger.Info().Str("from", string(l.last)).Str("to", string(status)).Msg("Status indicator changed")
	l.last = status
	return nil
}
