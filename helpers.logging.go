package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// AppName tags every log entry and prefixes the log files.
	AppName = "demo-lending"

	megabyte = 1 << 20
)

// RSyncWrite is a rotable and concurrent safe file-based logs writer
// used as zap.WriteSyncer. A new file is opened once the current one
// would grow past the max size.
type RSyncWrite struct {
	sync.Mutex
	clock     Clocker
	file      *os.File
	folder    string
	maxBytes  int64
	size      int64
	isProd    bool
	rotations int
}

// NewRSyncWriter sizes the files from the config in megabytes. A non
// positive size falls back to 10MB.
func NewRSyncWriter(config *Config, clock Clocker) *RSyncWrite {
	maxSize := config.LogMaxSize
	if maxSize <= 0 {
		maxSize = 10
	}
	return &RSyncWrite{
		clock:    clock,
		folder:   config.LogFolder,
		maxBytes: int64(maxSize) * megabyte,
		isProd:   config.IsProduction,
	}
}

// Close closes the current log file.
func (rsw *RSyncWrite) Close() error {
	rsw.Lock()
	defer rsw.Unlock()
	if rsw.file == nil {
		return nil
	}
	err := rsw.file.Close()
	rsw.file = nil
	return err
}

// Sync flushes the current log file if any.
func (rsw *RSyncWrite) Sync() error {
	rsw.Lock()
	defer rsw.Unlock()
	if rsw.file == nil {
		return nil
	}
	return rsw.file.Sync()
}

// Write appends p to the current file and rotates beforehand when p
// does not fit. An entry larger than a whole file is rejected.
func (rsw *RSyncWrite) Write(p []byte) (int, error) {
	rsw.Lock()
	defer rsw.Unlock()
	pLen := int64(len(p))
	if pLen > rsw.maxBytes {
		return 0, fmt.Errorf("logging: entry of %d bytes exceeds max file size of %d bytes", pLen, rsw.maxBytes)
	}
	if rsw.file == nil || rsw.size+pLen > rsw.maxBytes {
		if err := rsw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rsw.file.Write(p)
	rsw.size += int64(n)
	return n, err
}

// rotate closes the current file and opens the next one. The caller
// must hold the lock.
func (rsw *RSyncWrite) rotate() error {
	if rsw.file != nil {
		if err := rsw.file.Close(); err != nil {
			return err
		}
		rsw.file = nil
		rsw.rotations++
	}
	path := CreateLogFilePath(rsw.folder, rsw.isProd, rsw.clock.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: failed to open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	rsw.file = file
	rsw.size = info.Size()
	return nil
}

// Rotations returns how many files were closed because they were full.
func (rsw *RSyncWrite) Rotations() int {
	rsw.Lock()
	defer rsw.Unlock()
	return rsw.rotations
}

// SyncWrite implements zap.SyncWriter. This is a small hack to avoid usual
// `Handle is invalid` error when calling Sync() on logger using os.stdout.
type SyncWrite struct {
	out *os.File
}

func (sw *SyncWrite) Sync() error {
	return nil
}

func (sw *SyncWrite) Write(p []byte) (n int, err error) {
	return sw.out.Write(p)
}

// logEncoderConfig provides the keys shared by the file and console outputs.
func logEncoderConfig(isProd bool) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	if isProd {
		ec = zap.NewProductionEncoderConfig()
	}
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.LevelKey = "lvl"
	ec.NameKey = "name"
	ec.MessageKey = "msg"
	ec.CallerKey = "caller"
	ec.StacktraceKey = "skt"
	return ec
}

// SetupLogging builds the service logger. Entries are always written
// as json to the rotating file and, outside production, also printed
// to the console. Only fatal entries carry a stacktrace. Every entry
// is tagged with the app name and build details.
func SetupLogging(config *Config, w *RSyncWrite, clock TickerClocker) (*zap.Logger, func() error) {
	ec := logEncoderConfig(config.IsProduction)
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(ec), w, config.LogLevel)}
	if !config.IsProduction {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(&SyncWrite{os.Stdout}), config.LogLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.FatalLevel),
		zap.WithClock(clock),
	).Named("lending").With(
		zap.String("app.name", AppName),
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}
	return logger, flusher
}

// CreateLogFilePath names a log file after the app, the opening time
// and the environment.
func CreateLogFilePath(folder string, isProd bool, t time.Time) string {
	env := "dev"
	if isProd {
		env = "prod"
	}
	return filepath.Join(folder, fmt.Sprintf("%s.%s.%s.log", AppName, t.Format("20060102.150405.000"), env))
}
