// Package logging provides config-driven categorized logging for Toolbox.
// Category logs are written as JSON lines under <root>/.toolbox/logs/, one file
// per category per day. Logging is controlled by logging.debug_mode in
// config.yaml - when false, no log files are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"toolbox/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config resolution
	CategoryIndex   Category = "index"   // Package list load/refresh
	CategoryFetch   Category = "fetch"   // HTTP downloads
	CategoryInstall Category = "install" // Install/uninstall transactions
	CategoryStore   Category = "store"   // Record file and history database
	CategoryShell   Category = "shell"   // Interactive shell
)

// Logger wraps a zap logger bound to one category.
// A Logger with a nil sugar is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	cfg       config.LoggingConfig
	cfgMu     sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	console   *zap.Logger
)

// Initialize sets up the logging directory and stores the logging config.
// Should be called once at startup.
func Initialize(dir string, lc config.LoggingConfig) error {
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}

	// Loggers handed out before initialization are no-ops; drop them.
	CloseAll()

	cfgMu.Lock()
	cfg = lc
	logsDir = dir
	cfgMu.Unlock()

	if err := level.UnmarshalText([]byte(lc.Level)); err != nil || lc.Level == "" {
		level.SetLevel(zapcore.InfoLevel)
	}

	if !lc.DebugMode {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== Toolbox logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", level.Level())
	return nil
}

// SetConsole tees every enabled category to l as well as to its file.
// Passing nil detaches the console.
func SetConsole(l *zap.Logger) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	console = l
	closeAllLocked()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled,
// unless a console logger has been attached.
func Get(category Category) *Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	var cores []zapcore.Core
	l := &Logger{category: category}

	cfgMu.RLock()
	dir := logsDir
	cfgMu.RUnlock()

	if dir != "" && IsCategoryEnabled(category) {
		date := time.Now().Format("2006-01-02")
		logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		} else {
			l.file = file
			enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
			cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(file), level))
		}
	}
	if console != nil {
		cores = append(cores, console.Core())
	}

	if len(cores) > 0 {
		l.sugar = zap.New(zapcore.NewTee(cores...)).
			With(zap.String("category", string(category))).
			Sugar()
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying extra structured fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{
		category: l.category,
		sugar:    l.sugar.Desugar().With(fields...).Sugar(),
	}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	closeAllLocked()
}

func closeAllLocked() {
	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Index logs to the index category
func Index(format string, args ...interface{}) {
	Get(CategoryIndex).Info(format, args...)
}

// IndexDebug logs debug to the index category
func IndexDebug(format string, args ...interface{}) {
	Get(CategoryIndex).Debug(format, args...)
}

// IndexWarn logs warning to the index category
func IndexWarn(format string, args ...interface{}) {
	Get(CategoryIndex).Warn(format, args...)
}

// Fetch logs to the fetch category
func Fetch(format string, args ...interface{}) {
	Get(CategoryFetch).Info(format, args...)
}

// FetchDebug logs debug to the fetch category
func FetchDebug(format string, args ...interface{}) {
	Get(CategoryFetch).Debug(format, args...)
}

// FetchWarn logs warning to the fetch category
func FetchWarn(format string, args ...interface{}) {
	Get(CategoryFetch).Warn(format, args...)
}

// Install logs to the install category
func Install(format string, args ...interface{}) {
	Get(CategoryInstall).Info(format, args...)
}

// InstallDebug logs debug to the install category
func InstallDebug(format string, args ...interface{}) {
	Get(CategoryInstall).Debug(format, args...)
}

// InstallError logs error to the install category
func InstallError(format string, args ...interface{}) {
	Get(CategoryInstall).Error(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreWarn logs warning to the store category
func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warn(format, args...)
}

// Shell logs to the shell category
func Shell(format string, args ...interface{}) {
	Get(CategoryShell).Info(format, args...)
}

// ShellDebug logs debug to the shell category
func ShellDebug(format string, args ...interface{}) {
	Get(CategoryShell).Debug(format, args...)
}

// =============================================================================
// TIMING
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
