package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ProviderCLI   = "cli"
	ProviderGoGit = "go-git"

	AuditSqlite = "sqlite"
	AuditMysql  = "mysql"

	MaxSizeRules = 5
)

type Config struct {
	Git       GitConfig        `mapstructure:"git"`
	History   HistoryConfig    `mapstructure:"history"`
	SizeRules []SizeRuleConfig `mapstructure:"size-rules"`
	NameRules []NameRuleConfig `mapstructure:"name-rules"`
	Audit     AuditConfig      `mapstructure:"audit"`
}

type GitConfig struct {
	Binary   string        `mapstructure:"binary"`
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	PageSize            int `mapstructure:"page-size"`
	MaxChangesPerCommit int `mapstructure:"max-changes-per-commit"`
}

type SizeRuleConfig struct {
	Include  string `mapstructure:"include"`
	Exclude  string `mapstructure:"exclude"`
	Branches string `mapstructure:"branches"`
	Size     int64  `mapstructure:"size"`
}

type NameRuleConfig struct {
	Include  string `mapstructure:"include"`
	Exclude  string `mapstructure:"exclude"`
	Branches string `mapstructure:"branches"`
}

// AuditConfig selects the audit log store. An empty database disables it. For sqlite the
// database is a file, relative to the repository, or :memory:. For mysql it is a DSN.
type AuditConfig struct {
	Driver   string `mapstructure:"driver"`
	Database string `mapstructure:"database"`
}

// Load reads the configuration from file or, when file is empty, from pushguard.yaml inside
// repoDir or ~/.config/pushguard. No configuration file means no rules. Environment variables
// with the PUSHGUARD_ prefix override the file, like PUSHGUARD_GIT_TIMEOUT.
func Load(file string, repoDir string) (*Config, error) {
	v := newViper()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pushguard")
		v.SetConfigType("yaml")
		if repoDir != "" {
			v.AddConfigPath(repoDir)
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pushguard"))
		}
	}

	err := v.ReadInConfig()
	if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil, errors.Wrap(err, "error reading configuration")
	}

	return decode(v)
}

// Parse reads a YAML configuration.
func Parse(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	err := v.ReadConfig(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading configuration")
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("git.binary", "git")
	v.SetDefault("git.provider", ProviderCLI)
	v.SetDefault("git.timeout", 5*time.Minute)
	v.SetDefault("history.page-size", 100)
	v.SetDefault("history.max-changes-per-commit", 100)
	v.SetDefault("audit.driver", AuditSqlite)
	v.SetDefault("audit.database", "")

	v.SetEnvPrefix("PUSHGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var result Config

	err := v.Unmarshal(&result)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding configuration")
	}

	return &result, nil
}
