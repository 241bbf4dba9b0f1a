package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger sets up the global logger. Console output goes to stderr so it
// never mixes with the live display on stdout. A non-empty logFile adds a
// JSON sink at debug level.
func InitLogger(debug bool, logFile string) (io.Closer, error) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var writer io.Writer = levelFilter{w: console, min: level}
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		closer = f
		writer = zerolog.MultiLevelWriter(writer, f)
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Str("run", uuid.NewString()[:8]).Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// levelFilter drops events below min so the file sink can keep debug
// events while the console stays quiet.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (l levelFilter) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

func (l levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < l.min {
		return len(p), nil
	}
	return l.w.Write(p)
}
