package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"traycore/internal/blob"
	"traycore/internal/core"
	"traycore/pkg/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != core.StorageSQLite || cfg.Storage.SQLitePath != "traycore.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != blob.DriverFilesystem || cfg.Blob.FSRoot != "./blobdata" {
		t.Fatalf("unexpected blob defaults %+v", cfg.Blob)
	}
	if cfg.Log.Level != "info" || cfg.TraysFile != "trays.yaml" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traycore.yaml")
	doc := strings.Join([]string{
		"storage:",
		"  driver: memory",
		"blob:",
		"  driver: s3",
		"  s3:",
		"    bucket: plates",
		"    path_style: true",
		"log:",
		"  level: debug",
		"catalog_file: catalog.yaml",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TRAYCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("TRAYCORE_STORAGE_POSTGRES_DSN", "postgres://db/traycore")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != core.StoragePostgres || cfg.Storage.PostgresDSN != "postgres://db/traycore" {
		t.Fatalf("env should override file: %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != blob.DriverS3 || cfg.Blob.S3.Bucket != "plates" || !cfg.Blob.S3.PathStyle {
		t.Fatalf("unexpected blob config %+v", cfg.Blob)
	}
	if cfg.Log.Level != "debug" || cfg.CatalogFile != "catalog.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("TRAYCORE_STORAGE_DRIVER", "mongo")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}

func TestLoadTrays(t *testing.T) {
	doc := strings.Join([]string{
		"- order_sequence: 1",
		"  rotation_degrees: 90",
		"  trays:",
		"    - {name: P1, qty_x_axis: 12, qty_y_axis: 8, well_relative_diameter: 0.8}",
		"- order_sequence: 2",
		"  rotation_degrees: 0",
		"  trays:",
		"    - {name: P2, qty_x_axis: 6, qty_y_axis: 4}",
	}, "\n")
	trays, err := LoadTrays(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load trays: %v", err)
	}
	if len(trays) != 2 || trays[0].Name != "P1" || trays[0].Columns != 12 || trays[0].Rows != 8 || trays[0].Rotation != domain.Rotation90 {
		t.Fatalf("unexpected trays %+v", trays)
	}
	if trays[0].WellDiameter == nil || *trays[0].WellDiameter != 0.8 {
		t.Fatalf("well diameter not carried")
	}

	for name, bad := range map[string]string{
		"empty":          "",
		"unknown field":  "- order_sequence: 1\n  colour: red\n",
		"bad rotation":   "- order_sequence: 1\n  rotation_degrees: 45\n  trays: [{name: P1, qty_x_axis: 2, qty_y_axis: 2}]\n",
		"no definition":  "- order_sequence: 1\n  rotation_degrees: 0\n  trays: []\n",
		"zero rows":      "- order_sequence: 1\n  rotation_degrees: 0\n  trays: [{name: P1, qty_x_axis: 30, qty_y_axis: 0}]\n",
		"duplicate name": "- {order_sequence: 1, rotation_degrees: 0, trays: [{name: P1, qty_x_axis: 2, qty_y_axis: 2}]}\n- {order_sequence: 2, rotation_degrees: 0, trays: [{name: P1, qty_x_axis: 2, qty_y_axis: 2}]}\n",
	} {
		if _, err := LoadTrays(strings.NewReader(bad)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadTrays(strings.NewReader("")); !errors.Is(err, domain.ErrInvalidTray) {
		t.Fatalf("expected invalid tray for empty config, got %v", err)
	}
}

func TestLoadTraysBeyondLabelLimits(t *testing.T) {
	trays, err := LoadTrays(strings.NewReader("- {order_sequence: 1, rotation_degrees: 90, trays: [{name: Wide, qty_x_axis: 48, qty_y_axis: 32}]}\n"))
	if err != nil {
		t.Fatalf("load trays: %v", err)
	}
	if trays[0].Columns != 48 || trays[0].Rows != 32 {
		t.Fatalf("unexpected tray %+v", trays[0])
	}
	svc, err := core.NewService(trays)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_ = svc.Close()
}

func TestReadTraysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trays.yaml")
	if err := os.WriteFile(path, []byte("- {order_sequence: 3, rotation_degrees: 180, trays: [{name: X, qty_x_axis: 3, qty_y_axis: 2}]}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	trays, err := ReadTraysFile(path)
	if err != nil || len(trays) != 1 || trays[0].SequenceID != 3 {
		t.Fatalf("unexpected trays %+v (%v)", trays, err)
	}
	if _, err := ReadTraysFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(Log{Level: "warn"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) || !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("expected warn level logger")
	}
	dev, err := NewLogger(Log{Development: true})
	if err != nil || !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug development logger (%v)", err)
	}
	if _, err := NewLogger(Log{Level: "loud"}); err == nil {
		t.Fatalf("expected level parse error")
	}
}
