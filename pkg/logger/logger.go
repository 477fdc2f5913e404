// Package logger 提供简单的日志工具
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu sync.Mutex

	// 当前日志级别，默认为 Info
	currentLevel = LevelInfo

	// 日志输出目标，默认为标准错误
	out io.Writer = os.Stderr
)

// SetLevel 设置日志级别
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// SetLevelFromString 从字符串设置日志级别
func SetLevelFromString(level string) {
	switch strings.ToLower(level) {
	case "debug":
		SetLevel(LevelDebug)
	case "info":
		SetLevel(LevelInfo)
	case "warn", "warning":
		SetLevel(LevelWarn)
	case "error":
		SetLevel(LevelError)
	default:
		SetLevel(LevelInfo)
	}
}

// SetOutput 设置日志输出目标（测试用）
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// IsDebugEnabled 检查是否启用调试日志
func IsDebugEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel <= LevelDebug
}

func logf(level Level, tag, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if currentLevel > level {
		return
	}
	fmt.Fprintf(out, tag+format+"\n", args...)
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) {
	logf(LevelDebug, "[DEBUG] ", format, args...)
}

// Info 输出信息日志
func Info(format string, args ...interface{}) {
	logf(LevelInfo, "[INFO] ", format, args...)
}

// Warn 输出警告日志
func Warn(format string, args ...interface{}) {
	logf(LevelWarn, "[WARN] ", format, args...)
}

// Error 输出错误日志
func Error(format string, args ...interface{}) {
	logf(LevelError, "[ERROR] ", format, args...)
}
