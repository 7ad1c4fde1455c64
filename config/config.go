package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SysConfig system settings
type SysConfig struct {
	Appid    string `yaml:"appid" mapstructure:"appid"`
	Location string `yaml:"location" mapstructure:"location"`
	Workdir  string `yaml:"workdir" mapstructure:"workdir"`
	Debug    bool   `yaml:"debug" mapstructure:"debug"`
}

// WebConfig admin api listener
type WebConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// DBConfig database settings, Type is postgres or sqlite
type DBConfig struct {
	Type     string `yaml:"type" mapstructure:"type"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Name     string `yaml:"name" mapstructure:"name"`
	User     string `yaml:"user" mapstructure:"user"`
	Passwd   string `yaml:"passwd" mapstructure:"passwd"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
	IdleConn int    `yaml:"idle_conn" mapstructure:"idle_conn"`
	Debug    bool   `yaml:"debug" mapstructure:"debug"`
}

// LogConfig logger settings
type LogConfig struct {
	Mode       string `yaml:"mode" mapstructure:"mode"`
	FileEnable bool   `yaml:"file_enable" mapstructure:"file_enable"`
	Filename   string `yaml:"filename" mapstructure:"filename"`
}

// PosConfig point-of-sale workflow settings
type PosConfig struct {
	SweepCron      string `yaml:"sweep_cron" mapstructure:"sweep_cron"`
	MonitorCron    string `yaml:"monitor_cron" mapstructure:"monitor_cron"`
	RetentionDays  int    `yaml:"retention_days" mapstructure:"retention_days"`
	WorkerPool     int    `yaml:"worker_pool" mapstructure:"worker_pool"`
	OperatorHeader string `yaml:"operator_header" mapstructure:"operator_header"`
	DefaultTables  int    `yaml:"default_tables" mapstructure:"default_tables"`
}

// MailConfig smtp settings for the daily close report
type MailConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Host    string   `yaml:"host" mapstructure:"host"`
	Port    int      `yaml:"port" mapstructure:"port"`
	User    string   `yaml:"user" mapstructure:"user"`
	Passwd  string   `yaml:"passwd" mapstructure:"passwd"`
	From    string   `yaml:"from" mapstructure:"from"`
	To      []string `yaml:"to" mapstructure:"to"`
	Locale  string   `yaml:"locale" mapstructure:"locale"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system" mapstructure:"system"`
	Web      WebConfig  `yaml:"web" mapstructure:"web"`
	Database DBConfig   `yaml:"database" mapstructure:"database"`
	Logger   LogConfig  `yaml:"logger" mapstructure:"logger"`
	Pos      PosConfig  `yaml:"pos" mapstructure:"pos"`
	Mail     MailConfig `yaml:"mail" mapstructure:"mail"`
}

// GetLogDir log directory under workdir
func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

// GetDataDir data directory under workdir
func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

// InitDirs creates the workdir layout
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns the built-in defaults
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "RestoPOS",
			Location: "America/Lima",
			Workdir:  "/var/restopos",
		},
		Web: WebConfig{Host: "0.0.0.0", Port: 1816},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "restopos",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  50,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/restopos/logs/restopos.log",
		},
		Pos: PosConfig{
			SweepCron:      "0 5 0 * * *",
			MonitorCron:    "@every 30s",
			RetentionDays:  365,
			WorkerPool:     8,
			OperatorHeader: "X-Operator-Id",
			DefaultTables:  10,
		},
		Mail: MailConfig{Port: 587, Locale: "es"},
	}
}

// envBindings maps environment variables to dotted config keys
var envBindings = map[string]string{
	"RESTOPOS_SYSTEM_WORKDIR":  "system.workdir",
	"RESTOPOS_SYSTEM_LOCATION": "system.location",
	"RESTOPOS_SYSTEM_DEBUG":    "system.debug",
	"RESTOPOS_WEB_HOST":        "web.host",
	"RESTOPOS_WEB_PORT":        "web.port",
	"RESTOPOS_DB_TYPE":         "database.type",
	"RESTOPOS_DB_HOST":         "database.host",
	"RESTOPOS_DB_PORT":         "database.port",
	"RESTOPOS_DB_NAME":         "database.name",
	"RESTOPOS_DB_USER":         "database.user",
	"RESTOPOS_DB_PWD":          "database.passwd",
	"RESTOPOS_DB_DEBUG":        "database.debug",
	"RESTOPOS_LOGGER_MODE":     "logger.mode",
	"RESTOPOS_LOGGER_FILE":     "logger.file_enable",
	"RESTOPOS_SWEEP_CRON":      "pos.sweep_cron",
	"RESTOPOS_WORKER_POOL":     "pos.worker_pool",
	"RESTOPOS_RETENTION_DAYS":  "pos.retention_days",
	"RESTOPOS_MAIL_ENABLED":    "mail.enabled",
	"RESTOPOS_MAIL_HOST":       "mail.host",
	"RESTOPOS_MAIL_PORT":       "mail.port",
	"RESTOPOS_MAIL_USER":       "mail.user",
	"RESTOPOS_MAIL_PWD":        "mail.passwd",
	"RESTOPOS_MAIL_FROM":       "mail.from",
	"RESTOPOS_MAIL_TO":         "mail.to",
}

// LoadConfig reads the yaml file at path (optional), applies RESTOPOS_* environment
// overrides and decodes the result on top of the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	raw := make(map[string]interface{})
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	for env, key := range envBindings {
		if v, ok := os.LookupEnv(env); ok {
			setPath(raw, key, v)
		}
	}

	cfg := DefaultAppConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, errors.Wrap(err, "build config decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	return cfg, nil
}

func setPath(m map[string]interface{}, key string, value interface{}) {
	parts := strings.Split(key, ".")
	cur := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
