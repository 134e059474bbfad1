package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const configPath = "config.yaml"

// TLS holds the configuration for automatic HTTPS.
type TLS struct {
	Email    string   `yaml:"email"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
	Addr     string   `yaml:"addr"`
}

// Config represents the structure of the optional config.yaml file.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLS             *TLS          `yaml:"tls"`
}

func (c Config) WithDefaults() Config {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 80
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.TLS != nil {
		tls := *c.TLS
		if tls.CacheDir == "" {
			tls.CacheDir = "certs"
		}
		if tls.Addr == "" {
			tls.Addr = ":443"
		}
		c.TLS = &tls
	}
	return c
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port: %d is out of range", c.Port)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout: can't be negative")
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
	}
	if c.TLSEnabled() {
		if _, _, err := net.SplitHostPort(c.TLS.Addr); err != nil {
			return fmt.Errorf("tls.addr: %w", err)
		}
	}
	return nil
}

// Addr is the address of the main listener.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) TLSEnabled() bool {
	return c.TLS != nil && len(c.TLS.Domains) > 0
}

// loadConfig reads the config file at path. A missing file is not an error,
// the defaults are used instead.
func loadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}.WithDefaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()
	return readConfig(f)
}

func readConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
