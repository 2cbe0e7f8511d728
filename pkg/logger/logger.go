package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileName 日志目录下的核心日志文件名
const FileName = "raydesk.log"

var logFile *os.File

// Init 初始化全局日志，debug 为 true 时输出 Debug 级别
// logDir 非空时同时追加写入 logDir/raydesk.log，打开失败则只输出到控制台
func Init(debug bool, logDir string) *logrus.Logger {
	log := logrus.New()
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	}
	log.SetOutput(os.Stdout)

	var fileErr error
	if logDir != "" {
		f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fileErr = err
		} else {
			Close()
			logFile = f
			log.SetOutput(io.MultiWriter(os.Stdout, f))
			// 文件里不要颜色控制符
			formatter.ForceColors = false
			formatter.DisableColors = true
		}
	}
	log.SetFormatter(formatter)

	log.SetLevel(logrus.InfoLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if fileErr != nil {
		log.Warnf("[Logger] 打开日志文件失败，仅输出到控制台: %v", fileErr)
	}
	return log
}

// Close 关闭日志文件
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
