package apply

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging for a patch run.
type Logger struct {
	zap *zap.Logger
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// NewLogger creates a Logger that writes to a file. An empty path disables
// logging. Development mode uses a readable console encoder at debug level;
// otherwise output is JSON at info level.
func NewLogger(logPath string, development bool) (*Logger, error) {
	if logPath == "" {
		return &Logger{zap: zap.NewNop()}, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	level := zapcore.InfoLevel
	if development {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(logFile), level)
	return &Logger{zap: zap.New(core)}, nil
}

// Close syncs the logger (should be called on shutdown).
func (l *Logger) Close() error {
	return l.zap.Sync()
}

// Zap exposes the underlying logger for components that trace through it.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// HunkApplied logs a successfully placed hunk.
func (l *Logger) HunkApplied(index, start int, confidence float64, drift int, relocated bool) {
	l.zap.Info("hunk applied",
		zap.Int("hunk", index+1),
		zap.Int("line", start+1),
		zap.Float64("confidence", confidence),
		zap.Int("drift", drift),
		zap.Bool("relocated", relocated),
	)
}

// HunkConflicted logs a hunk that could not be placed.
func (l *Logger) HunkConflicted(index int, reason error) {
	l.zap.Warn("hunk conflicted",
		zap.Int("hunk", index+1),
		zap.Error(reason),
	)
}

// RunFinished logs the summary for one file.
func (l *Logger) RunFinished(target string, applied, relocated, conflicted int) {
	l.zap.Info("run finished",
		zap.String("target", target),
		zap.Int("applied", applied),
		zap.Int("relocated", relocated),
		zap.Int("conflicted", conflicted),
	)
}

// Error logs an error.
func (l *Logger) Error(msg string, err error) {
	l.zap.Error(msg, zap.Error(err))
}
