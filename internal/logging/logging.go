// Package logging wires up structured logging for the login server:
// console output plus an optional rotated login-activity file, built on
// zap and lumberjack.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance, set by Init before any goroutine
// touches it.
var Log *zap.Logger

// FileConfig describes the rotated log file lumberjack writes to.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func defaultFileConfig(path string) FileConfig {
	return FileConfig{Path: path, MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 30, Compress: true}
}

// Init sets up Log with a console core and, if logFile is non-empty, a
// file core backed by lumberjack.
func Init(level, logFile string) error {
	return InitWithFileConfig(level, defaultFileConfig(logFile), true)
}

// InitWithFileConfig gives full control over the file sink; consoleOutput
// can be disabled for tests.
func InitWithFileConfig(level string, fileCfg FileConfig, consoleOutput bool) error {
	lvl := parseLevel(level)
	var cores []zapcore.Core

	if consoleOutput {
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:      "time",
			LevelKey:     "level",
			MessageKey:   "msg",
			CallerKey:    "caller",
			EncodeTime:   zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:  zapcore.CapitalColorLevelEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl))
	}

	if fileCfg.Path != "" {
		writer := &lumberjack.Logger{
			Filename:   fileCfg.Path,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
			LocalTime:  true,
		}
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:      "time",
			LevelKey:     "level",
			MessageKey:   "msg",
			CallerKey:    "caller",
			EncodeTime:   zapcore.ISO8601TimeEncoder,
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(writer), lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries; call on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// LoginLog is a dedicated rotated sink for authentication attempts,
// independent of the general server log so auth history can be shipped
// or audited separately.
type LoginLog struct {
	logger *zap.Logger
}

// NewLoginLog opens a rotated login-activity log at path. An empty path
// disables the file sink and every Record call becomes a no-op.
func NewLoginLog(path string) *LoginLog {
	if path == "" {
		return &LoginLog{}
	}
	writer := &lumberjack.Logger{Filename: path, MaxSize: 50, MaxBackups: 10, MaxAge: 90, Compress: true, LocalTime: true}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:    "time",
		MessageKey: "msg",
		EncodeTime: zapcore.ISO8601TimeEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(writer), zapcore.InfoLevel)
	return &LoginLog{logger: zap.New(core)}
}

// Record appends one line describing a login attempt's outcome: the
// peer IP, the account name involved, the numeric result code, and a
// short human-readable message. Fire-and-forget — a write failure here
// must never affect the authentication outcome.
func (l *LoginLog) Record(ip, who string, code int, message string) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Info(message, zap.String("ip", ip), zap.String("who", who), zap.Int("code", code))
}
