package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/resource-scheduler/internal/logging"
)

// Environment variable names understood by Load.
const (
	EnvConfigFile        = "SCHEDULER_CONFIG_FILE"
	EnvHTTPPort          = "SCHEDULER_HTTP_PORT"
	EnvSQLitePath        = "SCHEDULER_SQLITE_PATH"
	EnvSQLiteBusyTimeout = "SCHEDULER_SQLITE_BUSY_TIMEOUT"
	EnvLogLevel          = "SCHEDULER_LOG_LEVEL"
	EnvAPIKeyHash        = "SCHEDULER_API_KEY_HASH"
)

// Config captures configuration values for the scheduler service.
type Config struct {
	HTTPPort          int
	SQLitePath        string
	SQLiteBusyTimeout time.Duration
	LogLevel          slog.Level
	// APIKeyHash is an encoded argon2id hash. Empty disables API key checks.
	APIKeyHash string
}

// fileConfig mirrors the YAML configuration file. Values are kept as text and
// validated together with the environment.
type fileConfig struct {
	HTTPPort          string `yaml:"http_port"`
	SQLitePath        string `yaml:"sqlite_path"`
	SQLiteBusyTimeout string `yaml:"sqlite_busy_timeout"`
	LogLevel          string `yaml:"log_level"`
	APIKeyHash        string `yaml:"api_key_hash"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		EnvHTTPPort:          f.HTTPPort,
		EnvSQLitePath:        f.SQLitePath,
		EnvSQLiteBusyTimeout: f.SQLiteBusyTimeout,
		EnvLogLevel:          f.LogLevel,
		EnvAPIKeyHash:        f.APIKeyHash,
	}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPPort:          8080,
		SQLitePath:        "scheduler.db",
		SQLiteBusyTimeout: 5 * time.Second,
		LogLevel:          slog.LevelInfo,
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// process environment, in that order of precedence from lowest to highest.
//
// path names the YAML file; when empty SCHEDULER_CONFIG_FILE is consulted.
// Invalid values are reported together with localized messages.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}

	values := make(map[string]string)
	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for key, value := range file.values() {
			if value = strings.TrimSpace(value); value != "" {
				values[key] = value
			}
		}
	}
	for _, key := range []string{EnvHTTPPort, EnvSQLitePath, EnvSQLiteBusyTimeout, EnvLogLevel, EnvAPIKeyHash} {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			values[key] = value
		}
	}

	invalid := make([]string, 0, 3)

	if portValue := values[EnvHTTPPort]; portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if sqlitePath := values[EnvSQLitePath]; sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}

	if timeoutValue := values[EnvSQLiteBusyTimeout]; timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, EnvSQLiteBusyTimeout)
		} else {
			cfg.SQLiteBusyTimeout = timeout
		}
	}

	if levelValue := values[EnvLogLevel]; levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, EnvLogLevel)
		} else {
			cfg.LogLevel = level
		}
	}

	if hash := values[EnvAPIKeyHash]; hash != "" {
		if !strings.HasPrefix(hash, "$argon2id$") {
			invalid = append(invalid, EnvAPIKeyHash)
		} else {
			cfg.APIKeyHash = hash
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileConfig{}, fmt.Errorf("設定ファイルが見つかりません: %s", path)
		}
		return fileConfig{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fileConfig{}, fmt.Errorf("設定ファイルの形式が不正です: %w", err)
	}
	return file, nil
}
