// Package config loads the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"zygl/pkg/log"
)

const (
	minPort = 1024
	maxPort = 65535

	minBroadcastPeriodMs = 100
)

type Backend struct {
	APIURL         string `yaml:"api_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryMax       int    `yaml:"retry_max"`
	RetryWaitMinMs int    `yaml:"retry_wait_min_ms"`
	RetryWaitMaxMs int    `yaml:"retry_wait_max_ms"`
}

func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type DataCollector struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

func (d DataCollector) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

type UDP struct {
	MulticastAddress    string `yaml:"multicast_address"`
	StateBroadcastPort  int    `yaml:"state_broadcast_port"`
	CommandListenerPort int    `yaml:"command_listener_port"`
	ChassisIntervalMs   int    `yaml:"chassis_interval_ms"`
	AlertIntervalMs     int    `yaml:"alert_interval_ms"`
	LabelIntervalMs     int    `yaml:"label_interval_ms"`
	TTL                 int    `yaml:"ttl"`
	Loopback            bool   `yaml:"loopback"`
	Interface           string `yaml:"interface"`
}

type Webhook struct {
	ListenPort int     `yaml:"listen_port"`
	RateLimit  float64 `yaml:"rate_limit"`
}

func (w Webhook) Addr() string {
	return fmt.Sprintf(":%d", w.ListenPort)
}

type Hardware struct {
	IPBasePattern string `yaml:"ip_base_pattern"`
	IPOffset      int    `yaml:"ip_offset"`
}

type Alerts struct {
	MaxAgeSeconds        int `yaml:"max_age_seconds"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
}

func (a Alerts) MaxAge() time.Duration {
	return time.Duration(a.MaxAgeSeconds) * time.Second
}

func (a Alerts) SweepInterval() time.Duration {
	return time.Duration(a.SweepIntervalSeconds) * time.Second
}

type Journal struct {
	Path string `yaml:"path"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Backend       Backend       `yaml:"backend"`
	DataCollector DataCollector `yaml:"data_collector"`
	UDP           UDP           `yaml:"udp"`
	Webhook       Webhook       `yaml:"webhook"`
	Hardware      Hardware      `yaml:"hardware"`
	Alerts        Alerts        `yaml:"alerts"`
	Journal       Journal       `yaml:"journal"`
	Logging       Logging       `yaml:"logging"`
}

func Default() Config {
	return Config{
		Backend: Backend{
			APIURL:         "http://localhost:8080",
			TimeoutSeconds: 10,
			RetryMax:       3,
			RetryWaitMinMs: 200,
			RetryWaitMaxMs: 2000,
		},
		DataCollector: DataCollector{IntervalSeconds: 5},
		UDP: UDP{
			MulticastAddress:    "239.0.0.1",
			StateBroadcastPort:  5000,
			CommandListenerPort: 5001,
			ChassisIntervalMs:   1000,
			AlertIntervalMs:     2000,
			LabelIntervalMs:     5000,
			TTL:                 1,
			Loopback:            true,
		},
		Webhook: Webhook{ListenPort: 9000},
		Hardware: Hardware{
			IPBasePattern: "192.168.%d.%d",
			IPOffset:      100,
		},
		Alerts: Alerts{
			MaxAgeSeconds:        86400,
			SweepIntervalSeconds: 60,
		},
		Journal: Journal{Path: ":memory:"},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	ports := []struct {
		name string
		port int
	}{
		{"udp.state_broadcast_port", c.UDP.StateBroadcastPort},
		{"udp.command_listener_port", c.UDP.CommandListenerPort},
		{"webhook.listen_port", c.Webhook.ListenPort},
	}
	for _, p := range ports {
		if p.port < minPort || p.port > maxPort {
			return fmt.Errorf("%w: %s %d outside %d-%d", ErrInvalidConfig, p.name, p.port, minPort, maxPort)
		}
	}
	if c.UDP.StateBroadcastPort == c.UDP.CommandListenerPort {
		return fmt.Errorf("%w: state and command ports are both %d", ErrInvalidConfig, c.UDP.StateBroadcastPort)
	}

	if c.DataCollector.IntervalSeconds < 1 {
		return fmt.Errorf("%w: data_collector.interval_seconds must be at least 1", ErrInvalidConfig)
	}

	periods := []struct {
		name string
		ms   int
	}{
		{"udp.chassis_interval_ms", c.UDP.ChassisIntervalMs},
		{"udp.alert_interval_ms", c.UDP.AlertIntervalMs},
		{"udp.label_interval_ms", c.UDP.LabelIntervalMs},
	}
	for _, p := range periods {
		if p.ms < minBroadcastPeriodMs {
			return fmt.Errorf("%w: %s must be at least %d", ErrInvalidConfig, p.name, minBroadcastPeriodMs)
		}
	}

	ip := net.ParseIP(c.UDP.MulticastAddress)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return fmt.Errorf("%w: udp.multicast_address %q is not an IPv4 multicast group", ErrInvalidConfig, c.UDP.MulticastAddress)
	}

	u, err := url.Parse(c.Backend.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend.api_url %q is not an http(s) URL", ErrInvalidConfig, c.Backend.APIURL)
	}
	if c.Backend.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: backend.timeout_seconds must be at least 1", ErrInvalidConfig)
	}

	if c.Webhook.RateLimit < 0 {
		return fmt.Errorf("%w: webhook.rate_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Broadcast periods as durations.
func (u UDP) ChassisInterval() time.Duration {
	return time.Duration(u.ChassisIntervalMs) * time.Millisecond
}

func (u UDP) AlertInterval() time.Duration {
	return time.Duration(u.AlertIntervalMs) * time.Millisecond
}

func (u UDP) LabelInterval() time.Duration {
	return time.Duration(u.LabelIntervalMs) * time.Millisecond
}
