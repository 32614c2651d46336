package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "http://localhost:5000/api"
	DefaultProbeTimeout = 10
	DefaultServerPort   = 5000
	DefaultDBTimeout    = 10
)

// Environment variables consulted by LoadEnv.
const (
	EnvBaseURL  = "APICATALOG_BASE_URL"
	EnvLogLevel = "APICATALOG_LOG_LEVEL"
	EnvPort     = "APICATALOG_PORT"
)

// DBConfig describes a database to introspect. The field names match the
// connection profile the backend stores.
type DBConfig struct {
	Engine       string `yaml:"engine" json:"engine"`
	IP           string `yaml:"ip" json:"ip"`
	Port         int    `yaml:"port" json:"port,omitempty"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name"`
	DSN          string `yaml:"dsn" json:"dsn,omitempty"` // optional explicit DSN
}

type ClientConfig struct {
	BaseURL             string `yaml:"base_url" json:"base_url"`
	ProbeTimeoutSeconds int    `yaml:"probe_timeout_seconds" json:"probe_timeout_seconds"`
}

type ServerConfig struct {
	Port             int `yaml:"port" json:"port"`
	DBTimeoutSeconds int `yaml:"db_timeout_seconds" json:"db_timeout_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

type AppConfig struct {
	Client   ClientConfig `yaml:"client" json:"client"`
	Server   ServerConfig `yaml:"server" json:"server"`
	Database DBConfig     `yaml:"database" json:"database"`
	Log      LogConfig    `yaml:"log" json:"log"`
}

// Default returns a config with every default filled in.
func Default() AppConfig {
	return AppConfig{
		Client: ClientConfig{BaseURL: DefaultBaseURL, ProbeTimeoutSeconds: DefaultProbeTimeout},
		Server: ServerConfig{Port: DefaultServerPort, DBTimeoutSeconds: DefaultDBTimeout},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv reads the given .env files (missing files are ignored) and applies
// APICATALOG_* overrides on top of cfg.
func LoadEnv(cfg AppConfig, files ...string) (AppConfig, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return cfg, fmt.Errorf("load %s: %w", f, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Server.Port = p
	}
	return cfg, nil
}

// WithDefaults fills zero values with the package defaults.
func (c AppConfig) WithDefaults() AppConfig {
	d := Default()
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = d.Client.BaseURL
	}
	if c.Client.ProbeTimeoutSeconds <= 0 {
		c.Client.ProbeTimeoutSeconds = d.Client.ProbeTimeoutSeconds
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.DBTimeoutSeconds <= 0 {
		c.Server.DBTimeoutSeconds = d.Server.DBTimeoutSeconds
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Client.BaseURL = strings.TrimRight(c.Client.BaseURL, "/")
	return c
}

// ProbeTimeout is the upper bound for smoke-test calls to catalogued endpoints.
func (c ClientConfig) ProbeTimeout() time.Duration {
	if c.ProbeTimeoutSeconds <= 0 {
		return DefaultProbeTimeout * time.Second
	}
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// NormalizeDriver maps engine labels and common aliases to driver names.
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver":
		return "sqlserver"
	default:
		return strings.ToLower(strings.TrimSpace(d))
	}
}

// DefaultPort returns the port used when a connection profile leaves it out.
func DefaultPort(engine string) int {
	switch NormalizeDriver(engine) {
	case "postgres":
		return 5432
	case "mysql":
		return 3306
	case "sqlserver":
		return 1433
	default:
		return 0
	}
}

// BuildDriverAndDSN produces a driver name and DSN string for supported engines.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	t := NormalizeDriver(db.Engine)

	if db.DSN != "" {
		return t, db.DSN, nil
	}

	port := db.Port
	if port == 0 {
		port = DefaultPort(t)
	}
	hostPort := net.JoinHostPort(db.IP, strconv.Itoa(port))

	switch t {
	case "postgres":
		driver = "postgres"
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     hostPort,
			Path:     "/" + db.DatabaseName,
			RawQuery: "sslmode=disable",
		}
		dsn = u.String()
	case "mysql":
		driver = "mysql"
		mc := mysql.NewConfig()
		mc.User = db.Username
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = hostPort
		mc.DBName = db.DatabaseName
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	case "sqlite":
		driver = "sqlite"
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s?mode=ro", db.DatabaseName)
	case "sqlserver":
		driver = "sqlserver"
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     hostPort,
			RawQuery: url.Values{"database": {db.DatabaseName}}.Encode(),
		}
		dsn = u.String()
	default:
		err = fmt.Errorf("unsupported database engine: %s", db.Engine)
	}
	return
}
