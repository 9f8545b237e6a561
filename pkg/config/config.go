package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	Environment               string        `koanf:"-"`
	ExportDir                 string        `koanf:"export_dir" default:"./exports"`
	Hostname                  string        `koanf:"-"`
	JWTSecret                 string        `koanf:"jwt_secret" required:"true"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"3689"`
	WorkerPollInterval        time.Duration `koanf:"worker_poll_interval" default:"5s"`
	WorkerProcesses           int           `koanf:"worker_processes" default:"2"`
}

const (
	environmentENV    = "ENVIRONMENT"
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/circulation.yaml"
)

// New builds the config from defaults, the environment profile, the YAML
// config file (CONFIG_FILE) and finally environment variables, in increasing
// order of precedence.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname
	cfg.Environment = os.Getenv(environmentENV)

	switch cfg.Environment {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	known := knownKeys()
	err = k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests without touching the
// environment or the filesystem.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	loadTestConfig(cfg)
	return cfg
}

func loadTestConfig(cfg *Config) {
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.DatabaseFilePath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.WorkerPollInterval = 50 * time.Millisecond
	cfg.WorkerProcesses = 1
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = struct{}{}
	}
	return keys
}

func checkRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if !v.Field(i).IsZero() {
			continue
		}
		key := field.Tag.Get("koanf")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		return errors.New(fmt.Sprintf(
			"missing required config: set the %s environment variable or %s in the config file",
			strings.ToUpper(key), key,
		))
	}
	return nil
}

// toSnakeCase converts a Go field name such as DatabaseFilePath into its
// config key form.
func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
