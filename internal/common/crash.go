// -----------------------------------------------------------------------
// Crash Protection - Fatal error handling and crash file generation
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	plog "github.com/phuslu/log"
)

// CrashLogDir is the directory where crash files are written.
// Set during application initialization.
var CrashLogDir = "./logs"

// InstallCrashHandler sets up process-level crash protection.
// Call at the very start of main() together with a deferred RecoverWithCrashFile.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}

	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create log directory: %v\n", err)
	}
}

// WriteCrashFile writes a structured crash report and returns its path.
// Uses phuslu/log with a dedicated file writer so the report survives even
// when the main logger's buffers are lost.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	timestamp := time.Now().Format("2006-01-02T15-04-05")
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", timestamp))

	writer := &plog.FileWriter{
		Filename:   crashPath,
		MaxBackups: 1,
	}
	crashLogger := plog.Logger{
		Level:  plog.InfoLevel,
		Writer: writer,
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	crashLogger.Error().
		Str("version", GetFullVersion()).
		Str("panic", fmt.Sprintf("%v", panicVal)).
		Str("stack", stackTrace).
		Int("num_goroutine", runtime.NumGoroutine()).
		Int("num_cpu", runtime.NumCPU()).
		Str("goos", runtime.GOOS).
		Str("goarch", runtime.GOARCH).
		Uint64("alloc_mb", memStats.Alloc/1024/1024).
		Uint32("num_gc", memStats.NumGC).
		Msg("fatal crash")

	crashLogger.Error().
		Str("goroutines", GetAllGoroutineStacks()).
		Msg("goroutine dump")

	writer.Close()

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\n", crashPath)
	fmt.Fprintf(os.Stderr, "Panic: %v\n", panicVal)

	return crashPath
}

// GetAllGoroutineStacks returns stack traces for all goroutines.
func GetAllGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
		if len(buf) > 64*1024*1024 {
			return string(buf[:runtime.Stack(buf, true)])
		}
	}
}

// GetStackTrace returns the current goroutine's stack trace.
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// RecoverWithCrashFile is a helper for deferred panic recovery that writes a crash file.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}
