// Package config loads deployctl configuration from a YAML file,
// environment overrides, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Backup    BackupConfig    `yaml:"backup"`
	Services  []string        `yaml:"services"`
	Execution ExecutionConfig `yaml:"execution"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ProjectConfig struct {
	Dir          string `yaml:"dir"`
	Remote       string `yaml:"remote"`
	Branch       string `yaml:"branch"`
	Requirements string `yaml:"requirements"`
	VenvDir      string `yaml:"venv_dir"`
	Python       string `yaml:"python"`
	StaticDir    string `yaml:"static_dir"`
}

type BackupConfig struct {
	Root          string `yaml:"root"`
	RetentionDays int    `yaml:"retention_days"`
	MinFreeMB     uint64 `yaml:"min_free_mb"`
}

type ExecutionConfig struct {
	StepTimeoutSeconds int `yaml:"step_timeout"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	PathPrefix  string `yaml:"path_prefix"`
	DeployToken string `yaml:"deploy_token"`
	Schedule    string `yaml:"schedule"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// StepTimeout returns the per-step timeout for external commands.
func (c *ExecutionConfig) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSeconds) * time.Second
}

// SnapshotPrefix is the name prefix for backup snapshot directories.
// It follows the project directory's base name, so the default tree
// /srv/monorepo produces snapshots named monorepo-<timestamp>.
func (c *Config) SnapshotPrefix() string {
	return filepath.Base(c.Project.Dir)
}

// Retention returns the backup retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// Load reads the config file at path, then applies environment
// overrides and defaults. A missing file is not an error: overrides
// and defaults alone produce a complete configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
				return nil, fmt.Errorf("parse %s: %w", path, uerr)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnv applies the environment overrides the deploy scripts
// historically honored, plus the serve-mode token.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PROJECT_DIR"); v != "" {
		cfg.Project.Dir = v
	}
	if v := os.Getenv("BRANCH"); v != "" {
		cfg.Project.Branch = v
	}
	if v := os.Getenv("REQUIREMENTS"); v != "" {
		cfg.Project.Requirements = v
	}
	if v := os.Getenv("BACKUP_ROOT"); v != "" {
		cfg.Backup.Root = v
	}
	if v := os.Getenv("SERVICES"); v != "" {
		cfg.Services = strings.Fields(v)
	}
	if v := os.Getenv("DEPLOY_TOKEN"); v != "" {
		cfg.Server.DeployToken = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Project.Dir == "" {
		cfg.Project.Dir = "/srv/monorepo"
	}
	if cfg.Project.Remote == "" {
		cfg.Project.Remote = "origin"
	}
	if cfg.Project.Branch == "" {
		cfg.Project.Branch = "main"
	}
	if cfg.Project.Requirements == "" {
		cfg.Project.Requirements = filepath.Join(cfg.Project.Dir, "requirements.txt")
	}
	if cfg.Project.VenvDir == "" {
		cfg.Project.VenvDir = filepath.Join(cfg.Project.Dir, "venv")
	}
	if cfg.Project.Python == "" {
		cfg.Project.Python = "python3"
	}
	if cfg.Project.StaticDir == "" {
		cfg.Project.StaticDir = filepath.Join(cfg.Project.Dir, "static")
	}
	if cfg.Backup.Root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/root"
		}
		cfg.Backup.Root = filepath.Join(home, "backups")
	}
	if cfg.Backup.RetentionDays == 0 {
		cfg.Backup.RetentionDays = 30
	}
	if cfg.Backup.MinFreeMB == 0 {
		cfg.Backup.MinFreeMB = 512
	}
	if len(cfg.Services) == 0 {
		cfg.Services = []string{"gunicorn", "nginx"}
	}
	if cfg.Execution.StepTimeoutSeconds == 0 {
		cfg.Execution.StepTimeoutSeconds = 600
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PathPrefix == "" {
		cfg.Server.PathPrefix = "/deploy"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/deployctl.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.MaxSize == 0 {
		cfg.Logging.MaxSize = 20
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = 30
	}
}
