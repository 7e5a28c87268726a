package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the ambient, viper-loaded configuration for an arboretum
// store: page size, where its segment files live, the buffer pool's
// frame capacity, and the CLI/REPL's own settings.
type Config struct {
	Storage struct {
		Dir      string `mapstructure:"dir"`
		Base     string `mapstructure:"base"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`

	BufferPool struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"buffer_pool"`

	CLI struct {
		Prompt  string `mapstructure:"prompt"`
		History string `mapstructure:"history_file"`
	} `mapstructure:"cli"`
}

// Defaults returns a Config usable without any file on disk, mirroring
// the teacher's pattern of a safe zero-config starting point.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Storage.Dir = "."
	cfg.Storage.Base = "arboretum.db"
	cfg.Storage.PageSize = 8 * 1024
	cfg.BufferPool.Capacity = 128
	cfg.CLI.Prompt = "arboretum> "
	cfg.CLI.History = ".arboretum_history"
	return cfg
}

// LoadConfig reads a YAML config file at path into a Config, starting
// from Defaults so an incomplete file still produces a usable result.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("storage.base", cfg.Storage.Base)
	v.SetDefault("storage.page_size", cfg.Storage.PageSize)
	v.SetDefault("buffer_pool.capacity", cfg.BufferPool.Capacity)
	v.SetDefault("cli.prompt", cfg.CLI.Prompt)
	v.SetDefault("cli.history_file", cfg.CLI.History)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
