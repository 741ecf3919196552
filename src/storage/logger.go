package storage

import (
	"AviationEmission/src/config"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

// Logger 日志记录器结构体
type Logger struct {
	filename    string        // 日志文件路径
	file        *os.File      // 日志文件句柄
	mu          sync.Mutex    // 互斥锁，保证并发安全
	subscribers []chan string // 订阅者通道列表
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(filename string) (*Logger, error) {
	file, err := openLogFile(filename)
	if err != nil {
		return nil, err
	}

	return &Logger{
		filename: filename,
		file:     file,
	}, nil
}

func openLogFile(filename string) (*os.File, error) {
	return os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开日志文件(外部轮转后收到SIGHUP时调用)
func (l *Logger) Reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
	}

	file, err := openLogFile(l.filename)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	return nil
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 格式化日志条目: [时间] 级别: 消息
	entry := fmt.Sprintf("[%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		level.String(),
		message)

	if l.file != nil {
		l.file.WriteString(entry)
	}

	// 通知所有订阅者
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default: // 通道已满则跳过
		}
	}
}

// CheckRotate 日志文件超过log_max_size时轮转
func (l *Logger) CheckRotate(cfg *config.Config) {
	l.mu.Lock()
	file := l.file
	l.mu.Unlock()
	if file == nil {
		return
	}

	info, err := file.Stat()
	if err != nil {
		log.Printf("日志文件状态获取失败: %v", err)
		return
	}

	if limit := eval(cfg.LogMaxSize); limit > 0 && info.Size() > limit {
		if err := l.rotateLog(); err != nil {
			log.Printf("日志轮转失败: %v", err)
		}
	}
}

// rotateLog 将当前日志重命名为 name.时间戳.ext 后重新打开
func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		ext := filepath.Ext(l.filename)
		base := strings.TrimSuffix(l.filename, ext)
		if err := os.Rename(l.filename, fmt.Sprintf("%s.%s%s", base, time.Now().Format("20060102150405"), ext)); err != nil {
			log.Printf("日志重命名失败: %v", err)
		}
	}

	file, err := openLogFile(l.filename)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	return nil
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
func (l *Logger) Subscribe() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, 100)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Unsubscribe 取消订阅(HTTP客户端断开时调用)
func (l *Logger) Unsubscribe(sub <-chan string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, ch := range l.subscribers {
		if ch == sub {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			return
		}
	}
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// eval 计算形如 "10 * 1024 * 1024" 的大小表达式
func eval(expr string) int64 {
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		result *= int64(num)
	}
	return result
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }   // 记录调试信息
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }    // 记录普通信息
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) } // 记录警告信息
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }   // 记录错误信息
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }   // 记录致命错误
