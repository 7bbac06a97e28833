package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"BLAP_GIT_COMMIT"`
	GitTag                  string         `yaml:"git_tag" envconfig:"BLAP_GIT_TAG"`
	BuildTime               string         `yaml:"build_time" envconfig:"BLAP_BUILD_TIME"`
	IsProduction            bool           `yaml:"is_production" envconfig:"BLAP_IS_PRODUCTION"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"BLAP_LOG_LEVEL"`
	LogFolder               string         `yaml:"log_folder" envconfig:"BLAP_LOG_FOLDER"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"BLAP_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"BLAP_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"BLAP_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig   `yaml:"server"`
	Postgres                PostgresConfig `yaml:"postgres"`
	Redis                   RedisConfig    `yaml:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb"`
	Auth                    AuthConfig     `yaml:"auth"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"BLAP_SERVER_HOST"`
	Port                    string        `yaml:"port" envconfig:"BLAP_SERVER_PORT"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"BLAP_SERVER_READ_TIMEOUT"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"BLAP_SERVER_WRITE_TIMEOUT"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"BLAP_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"BLAP_SERVER_LONG_REQUEST_WRITE_TIMEOUT"`
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"BLAP_SERVER_SHUTDOWN_TIMEOUT"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host" envconfig:"BLAP_POSTGRES_HOST"`
	Port            string        `yaml:"port" envconfig:"BLAP_POSTGRES_PORT"`
	User            string        `yaml:"user" envconfig:"BLAP_POSTGRES_USER"`
	Password        string        `yaml:"password" envconfig:"BLAP_POSTGRES_PASSWORD" json:"-"`
	DatabaseName    string        `yaml:"db_name" envconfig:"BLAP_POSTGRES_DB_NAME"`
	SSLMode         string        `yaml:"ssl_mode" envconfig:"BLAP_POSTGRES_SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"BLAP_POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"BLAP_POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"BLAP_POSTGRES_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" envconfig:"BLAP_POSTGRES_AUTO_MIGRATE"`
}

// DSN builds the connection string expected by the gorm postgres driver.
func (pc *PostgresConfig) DSN() string {
	sslmode := pc.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s application_name=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DatabaseName, sslmode, AppName,
	)
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BLAP_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BLAP_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BLAP_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BLAP_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BLAP_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BLAP_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BLAP_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BLAP_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BLAP_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BLAP_REDIS_DATABASE_INDEX"`
	QueuePrefix   string        `yaml:"queue_prefix" envconfig:"BLAP_REDIS_QUEUE_PREFIX"`
}

type BoltDBConfig struct {
	FilePath         string        `yaml:"filepath" envconfig:"BLAP_BOLTDB_FILE_PATH"`
	Timeout          time.Duration `yaml:"timeout" envconfig:"BLAP_BOLTDB_TIMEOUT"`
	BooksBucketName  string        `yaml:"books_bucket_name" envconfig:"BLAP_BOLTDB_BOOKS_BUCKET_NAME"`
	EventsBucketName string        `yaml:"events_bucket_name" envconfig:"BLAP_BOLTDB_EVENTS_BUCKET_NAME"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret" envconfig:"BLAP_AUTH_JWT_SECRET" json:"-"`
	JWTIssuer   string        `yaml:"jwt_issuer" envconfig:"BLAP_AUTH_JWT_ISSUER"`
	TokenTTL    time.Duration `yaml:"token_ttl" envconfig:"BLAP_AUTH_TOKEN_TTL"`
	BcryptCost  int           `yaml:"bcrypt_cost" envconfig:"BLAP_AUTH_BCRYPT_COST"`
	MinPassword int           `yaml:"min_password" envconfig:"BLAP_AUTH_MIN_PASSWORD"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if len(config.Postgres.Host) == 0 || len(config.Postgres.Port) == 0 || len(config.Postgres.DatabaseName) == 0 {
		return errors.New("make sure to set valid postgres address, port and database name in configuration file")
	}

	if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if len(config.Auth.JWTSecret) < 32 {
		return errors.New("make sure to set a jwt secret of at least 32 characters")
	}

	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = 10 * time.Second
	}

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}

	if config.Auth.TokenTTL <= 0 {
		config.Auth.TokenTTL = 30 * time.Minute
	}

	if config.Auth.MinPassword <= 0 {
		config.Auth.MinPassword = 8
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if len(config.Redis.QueuePrefix) == 0 {
		config.Redis.QueuePrefix = "lending:queue:"
	}

	if len(config.BoltDB.BooksBucketName) == 0 {
		config.BoltDB.BooksBucketName = "books"
	}

	if len(config.BoltDB.EventsBucketName) == 0 {
		config.BoltDB.EventsBucketName = "events"
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration. The file is optional in containers.
	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BLAP`.
	err = LoadConfigEnvs("BLAP", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
