package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"ADDR", "MOUNT_PATH", "STORE_OP_TIMEOUT", "CURVE_MAX_WORKERS", "H3_RES", "KAFKA_BROKERS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if cfg.Addr != ":8090" || cfg.MountPath != "/ws/hazard" {
		t.Fatalf("unexpected addr/mount: %q %q", cfg.Addr, cfg.MountPath)
	}
	if cfg.StoreOpTimeout != 2*time.Second || cfg.CurveMaxWorkers != 4 || cfg.MetadataCacheSize != 256 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.H3Res != 5 || cfg.HitEvents.Enabled {
		t.Fatalf("unexpected hit event defaults: %+v", cfg.HitEvents)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MOUNT_PATH", "api/hazard/")
	t.Setenv("STORE_OP_TIMEOUT", "750ms")
	t.Setenv("CURVE_MAX_WORKERS", "9")
	t.Setenv("HIT_EVENTS_ENABLED", "yes")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("H3_RES", "42")

	cfg := FromEnv()
	if cfg.MountPath != "/api/hazard" {
		t.Fatalf("mount=%q", cfg.MountPath)
	}
	if cfg.StoreOpTimeout != 750*time.Millisecond || cfg.CurveMaxWorkers != 9 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if !cfg.HitEvents.Enabled || !reflect.DeepEqual(cfg.HitEvents.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("unexpected hit events: %+v", cfg.HitEvents)
	}
	if cfg.H3Res != 5 {
		t.Fatalf("out of range H3_RES should fall back, got %d", cfg.H3Res)
	}
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("CURVE_MAX_WORKERS", "many")
	t.Setenv("STORE_OP_TIMEOUT", "soon")
	t.Setenv("LOG_CONSOLE", "maybe")

	cfg := FromEnv()
	if cfg.CurveMaxWorkers != 4 || cfg.StoreOpTimeout != 2*time.Second || cfg.LogConsole {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
