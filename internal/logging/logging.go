// Package logging настраивает logrus: формат, уровень и вывод
// в stdout и/или файл с ротацией.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params — параметры логирования.
type Params struct {
	Level    string
	FileName string // пусто — только консоль
	ToStdout bool
	Console  io.Writer // nil — os.Stdout
}

// Setup применяет параметры к стандартному логгеру logrus.
// Возвращает io.Closer для файла логов (или nil).
func Setup(p Params) io.Closer {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(ParseLevel(p.Level))

	console := p.Console
	if console == nil {
		console = os.Stdout
	}

	if p.FileName == "" {
		log.SetOutput(console)
		return nil
	}

	if !strings.HasSuffix(p.FileName, ".log") {
		p.FileName += ".log"
	}

	file := &lumberjack.Logger{
		Filename:   p.FileName,
		MaxSize:    20, // мегабайты
		MaxBackups: 5,
		MaxAge:     90, // дни
		LocalTime:  false,
		Compress:   true,
	}

	if p.ToStdout {
		log.SetOutput(NewCombinedWriter(console, file))
		log.WithField("file", p.FileName).Debug("Логи пишутся в файл и stdout")
	} else {
		log.SetOutput(file)
	}
	return file
}

// ParseLevel разбирает уровень логирования; неизвестный уровень — info.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
