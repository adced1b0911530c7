// Package config loads process configuration, the tray configuration file and
// builds the process logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"traycore/internal/blob"
	"traycore/internal/core"
	"traycore/pkg/domain"
)

// EnvPrefix prefixes every environment override, e.g. TRAYCORE_STORAGE_DRIVER.
const EnvPrefix = "TRAYCORE"

// Config keys.
const (
	KeyStorageDriver     = "storage.driver"
	KeySQLitePath        = "storage.sqlite_path"
	KeyPostgresDSN       = "storage.postgres_dsn"
	KeyBlobDriver        = "blob.driver"
	KeyBlobFSRoot        = "blob.fs_root"
	KeyS3Bucket          = "blob.s3.bucket"
	KeyS3Region          = "blob.s3.region"
	KeyS3Endpoint        = "blob.s3.endpoint"
	KeyS3PathStyle       = "blob.s3.path_style"
	KeyS3AccessKeyID     = "blob.s3.access_key_id"
	KeyS3SecretKey       = "blob.s3.secret_access_key"
	KeyLogLevel          = "log.level"
	KeyLogDevelopment    = "log.development"
	KeyTraysFile         = "trays_file"
	KeyCatalogFile       = "catalog_file"
	defaultConfigName    = "traycore"
	defaultLogLevel      = "info"
	defaultTraysFile     = "trays.yaml"
	defaultSQLitePath    = "traycore.db"
	defaultBlobFSRoot    = "./blobdata"
	defaultStorageDriver = string(core.StorageSQLite)
)

// Log configures the process logger.
type Log struct {
	Level       string
	Development bool
}

// Config is the resolved process configuration.
type Config struct {
	Storage     core.StorageOptions
	Blob        blob.Config
	Log         Log
	TraysFile   string
	CatalogFile string
}

// Load reads configuration from path (or traycore.yaml in the working
// directory when path is empty) and applies TRAYCORE_ environment overrides.
// A missing default file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyStorageDriver, defaultStorageDriver)
	v.SetDefault(KeySQLitePath, defaultSQLitePath)
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyBlobDriver, string(blob.DriverFilesystem))
	v.SetDefault(KeyBlobFSRoot, defaultBlobFSRoot)
	v.SetDefault(KeyS3Bucket, "")
	v.SetDefault(KeyS3Region, "")
	v.SetDefault(KeyS3Endpoint, "")
	v.SetDefault(KeyS3PathStyle, false)
	v.SetDefault(KeyS3AccessKeyID, "")
	v.SetDefault(KeyS3SecretKey, "")
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyTraysFile, defaultTraysFile)
	v.SetDefault(KeyCatalogFile, "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Storage: core.StorageOptions{
			Driver:      core.StorageDriver(v.GetString(KeyStorageDriver)),
			SQLitePath:  v.GetString(KeySQLitePath),
			PostgresDSN: v.GetString(KeyPostgresDSN),
		},
		Blob: blob.Config{
			Driver: blob.Driver(v.GetString(KeyBlobDriver)),
			FSRoot: v.GetString(KeyBlobFSRoot),
			S3: blob.S3Config{
				Bucket:          v.GetString(KeyS3Bucket),
				Region:          v.GetString(KeyS3Region),
				Endpoint:        v.GetString(KeyS3Endpoint),
				PathStyle:       v.GetBool(KeyS3PathStyle),
				AccessKeyID:     v.GetString(KeyS3AccessKeyID),
				SecretAccessKey: v.GetString(KeyS3SecretKey),
			},
		},
		Log: Log{
			Level:       v.GetString(KeyLogLevel),
			Development: v.GetBool(KeyLogDevelopment),
		},
		TraysFile:   v.GetString(KeyTraysFile),
		CatalogFile: v.GetString(KeyCatalogFile),
	}
	switch cfg.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

// LoadTrays decodes a YAML tray configuration into validated trays in
// declaration order.
func LoadTrays(r io.Reader) ([]domain.Tray, error) {
	var placements []domain.TrayPlacement
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&placements); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty tray configuration", domain.ErrInvalidTray)
		}
		return nil, fmt.Errorf("decode trays: %w", err)
	}
	if len(placements) == 0 {
		return nil, fmt.Errorf("%w: empty tray configuration", domain.ErrInvalidTray)
	}
	return domain.TraysFromPlacements(placements)
}

// ReadTraysFile loads the tray configuration at path.
func ReadTraysFile(path string) ([]domain.Tray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trays: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadTrays(f)
}

// NewLogger builds the process logger. Production config writes JSON at the
// configured level; development config writes console output at debug.
func NewLogger(cfg Log) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopmentConfig().Build()
	}
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level.SetLevel(parsed)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	return zc.Build()
}
