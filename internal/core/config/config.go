package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type HitEventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type BuildCfg struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

type Config struct {
	Addr              string
	MountPath         string
	LogLevel          string
	LogConsole        bool
	LogSampleN        int
	RedisAddr         string
	StoreOpTimeout    time.Duration
	MetadataCacheSize int
	MetadataCacheTTL  time.Duration
	CurveMaxWorkers   int
	RequestTimeout    time.Duration
	H3Res             int
	HitEvents         HitEventsCfg
	Metrics           MetricsCfg
	Build             BuildCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 5)
	if res < 0 || res > 15 {
		res = 5
	}

	return Config{
		Addr:              getenv("ADDR", ":8090"),
		MountPath:         mountPath(getenv("MOUNT_PATH", "/ws/hazard")),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogConsole:        getbool("LOG_CONSOLE", false),
		LogSampleN:        getint("LOG_SAMPLE_N", 0),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		StoreOpTimeout:    getduration("STORE_OP_TIMEOUT", 2*time.Second),
		MetadataCacheSize: getint("METADATA_CACHE_SIZE", 256),
		MetadataCacheTTL:  getduration("METADATA_CACHE_TTL", time.Minute),
		CurveMaxWorkers:   getint("CURVE_MAX_WORKERS", 4),
		RequestTimeout:    getduration("REQUEST_TIMEOUT", 10*time.Second),
		H3Res:             res,
		HitEvents: HitEventsCfg{
			Enabled: getbool("HIT_EVENTS_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("HIT_EVENTS_TOPIC", "hazard-curve-hits"),
			Queue:   getint("HIT_EVENTS_QUEUE", 1024),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", true),
			Addr:    getenv("METRICS_ADDR", ""),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
		Build: BuildCfg{
			Version:   getenv("BUILD_VERSION", "dev"),
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	}
}

// mountPath normalizes to a leading slash and no trailing slash.
func mountPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
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

// parse "a:9092, b:9092" into a list, dropping blanks
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
