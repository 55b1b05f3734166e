// Package config holds the env-driven runtime configuration. The processing
// workspace is always passed on from here explicitly; nothing mutates a
// process-wide default.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Driver selects the workspace backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

type EventsCfg struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
}

type Config struct {
	// Workspace is the processing location. For the redis driver it is a
	// logical path whose spelling feeds the legacy field-name rule (a
	// location without ".gdb" only supports 10-character field names).
	Workspace string
	Driver    Driver

	RedisAddr    string
	RedisTimeout time.Duration

	LogLevel   string
	LogConsole bool

	// GeomCacheSize bounds the parsed-geometry LRU in the local engine.
	GeomCacheSize int

	Events EventsCfg
}

func FromEnv() Config {
	driver := Driver(strings.ToLower(getenv("WORKSPACE_DRIVER", string(DriverMemory))))
	if driver != DriverRedis {
		driver = DriverMemory
	}

	return Config{
		Workspace:     getenv("WORKSPACE", "memory"),
		Driver:        driver,
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisTimeout:  getduration("REDIS_OP_TIMEOUT", 250*time.Millisecond),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogConsole:    getbool("LOG_CONSOLE", false),
		GeomCacheSize: getint("GEOM_CACHE_SIZE", 4096),
		Events: EventsCfg{
			Enabled:  getbool("EVENTS_ENABLED", false),
			Brokers:  split(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:    getenv("EVENTS_TOPIC", "layer-categorized"),
			ClientID: getenv("EVENTS_CLIENT_ID", "categorize"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func split(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
