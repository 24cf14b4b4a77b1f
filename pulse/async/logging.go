package async

import (
	"github.com/teranos/lanes/logger"
	"go.uber.org/zap"
)

// pulseLogger wraps zap.SugaredLogger with methods for job lifecycle lines:
// - Starting → ✿ a Started episode opens (DEBUG, one per episode)
// - Closing  → ❀ a job stops on failure (WARN)
// - Pulse    → ꩜ general command and runtime events (INFO)
type pulseLogger struct {
	*zap.SugaredLogger
}

func (l pulseLogger) Starting(msg string, keysAndValues ...interface{}) {
	logger.AddPulseOpenSymbol(l.SugaredLogger).Debugw(msg, keysAndValues...)
}

func (l pulseLogger) Closing(msg string, keysAndValues ...interface{}) {
	logger.AddPulseCloseSymbol(l.SugaredLogger).Warnw(msg, keysAndValues...)
}

func (l pulseLogger) Pulse(msg string, keysAndValues ...interface{}) {
	logger.AddPulseSymbol(l.SugaredLogger).Infow(msg, keysAndValues...)
}
