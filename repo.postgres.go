package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold marks queries logged at warn level.
const slowQueryThreshold = 200 * time.Millisecond

// GetPostgresClient opens the database pool, tunes it and checks the connection.
func GetPostgresClient(config *Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: config.Postgres.DSN(),
	}), &gorm.Config{
		Logger:  NewGormZapLogger(logger, gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access the connection pool: %w", err)
	}
	if config.Postgres.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
	}
	if config.Postgres.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	}
	if config.Postgres.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.Postgres.ConnMaxLifetime)
	}

	// test connection.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("test connection failed: %w", err)
	}

	if config.Postgres.AutoMigrate {
		if err = Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates the tables and indexes of all entities.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Book{}, &User{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err was raised by a unique constraint.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// likePattern builds a case-insensitive substring pattern with
// the LIKE wildcards of the input escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// gormZapLogger routes gorm logs into the application zap logger.
type gormZapLogger struct {
	logger *zap.Logger
	level  gormlogger.LogLevel
}

// NewGormZapLogger provides a gorm logger backed by zap.
func NewGormZapLogger(logger *zap.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormZapLogger{logger: logger.Named("gorm"), level: level}
}

func (gl *gormZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormZapLogger{logger: gl.logger, level: level}
}

func (gl *gormZapLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if gl.level >= gormlogger.Info {
		gl.logger.Sugar().Infof(msg, args...)
	}
}

func (gl *gormZapLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if gl.level >= gormlogger.Warn {
		gl.logger.Sugar().Warnf(msg, args...)
	}
}

func (gl *gormZapLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if gl.level >= gormlogger.Error {
		gl.logger.Sugar().Errorf(msg, args...)
	}
}

// Trace logs failed and slow statements. Record-not-found is expected
// on lookups and is not reported.
func (gl *gormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if gl.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && gl.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		gl.logger.Error("db: query failed",
			zap.String("request.id", GetValueFromContext(ctx, ContextRequestID)),
			zap.String("db.sql", sql),
			zap.Int64("db.rows", rows),
			zap.Duration("db.duration", elapsed),
			zap.Error(err),
		)
	case elapsed > slowQueryThreshold && gl.level >= gormlogger.Warn:
		sql, rows := fc()
		gl.logger.Warn("db: slow query",
			zap.String("request.id", GetValueFromContext(ctx, ContextRequestID)),
			zap.String("db.sql", sql),
			zap.Int64("db.rows", rows),
			zap.Duration("db.duration", elapsed),
		)
	case gl.level >= gormlogger.Info:
		sql, rows := fc()
		gl.logger.Debug("db: query",
			zap.String("db.sql", sql),
			zap.Int64("db.rows", rows),
			zap.Duration("db.duration", elapsed),
		)
	}
}
