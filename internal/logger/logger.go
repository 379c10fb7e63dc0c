package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger *Logger
)

// Logger 日志结构体
type Logger struct {
	zl zerolog.Logger
}

// LogLevel 日志级别类型
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// GetLogLevelFromString 将字符串转换为日志级别
func GetLogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return WARN // 默认级别
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// InitLogger 初始化日志系统
// path: "console" or "" logs to stdout only, otherwise JSON lines are appended to the file
// isServerMode: the server additionally mirrors the log to the console
func InitLogger(path string, level string, isServerMode bool) {
	var writers []io.Writer
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}

	if path == "console" || path == "" {
		writers = append(writers, console)
	} else {
		writers = append(writers, setupLogFileOutput(path))
		if isServerMode {
			writers = append(writers, console)
		}
	}

	zl := zerolog.New(io.MultiWriter(writers...)).
		Level(GetLogLevelFromString(level).zerolog()).
		With().Timestamp().Logger()
	defaultLogger = &Logger{zl: zl}
}

// InitWithWriter routes all log output to w, used by tests.
func InitWithWriter(w io.Writer, level string) {
	defaultLogger = &Logger{
		zl: zerolog.New(w).Level(GetLogLevelFromString(level).zerolog()).With().Timestamp().Logger(),
	}
}

// setupLogFileOutput 设置日志文件输出
func setupLogFileOutput(logPath string) io.Writer {
	// 确保日志目录存在
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create log directory failed: %v\n", err)
		return os.Stdout
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// 在日志系统初始化失败时，暂时使用标准错误输出
		fmt.Fprintf(os.Stderr, "open log file failed: %v\n", err)
		return os.Stdout
	}
	return file
}

// With returns a zerolog child logger carrying a component field.
func With(component string) zerolog.Logger {
	if defaultLogger == nil {
		return zerolog.Nop()
	}
	return defaultLogger.zl.With().Str("component", component).Logger()
}

// Debug 输出调试日志
func Debug(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Debug().Msg(fmt.Sprint(v...))
	}
}

// Debugf 输出格式化调试日志
func Debugf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Debug().Msgf(format, v...)
	}
}

// Info 输出信息日志
func Info(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Info().Msg(fmt.Sprint(v...))
	}
}

// Infof 输出格式化信息日志
func Infof(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Info().Msgf(format, v...)
	}
}

// Warn 输出警告日志
func Warn(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Warn().Msg(fmt.Sprint(v...))
	}
}

// Warnf 输出格式化警告日志
func Warnf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Warn().Msgf(format, v...)
	}
}

// Error 输出错误日志
func Error(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Error().Msg(fmt.Sprint(v...))
	}
}

// Errorf 输出格式化错误日志
func Errorf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Error().Msgf(format, v...)
	}
}

// Fatal 输出致命错误日志并退出程序
func Fatal(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Fatal().Msg(fmt.Sprint(v...))
	}
	// 在日志系统未初始化时，使用标准错误输出
	fmt.Fprintf(os.Stderr, "FATAL: %v\n", fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf 输出格式化致命错误日志并退出程序
func Fatalf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.zl.Fatal().Msgf(format, v...)
	}
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
	os.Exit(1)
}
