package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/podium/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CachePrefix, convey.ShouldEqual, "podium")
				convey.So(cfg.MaxPageSize, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PODIUM_ADDR", ":8080")
			_ = os.Setenv("PODIUM_REDIS_ADDR", "redis:6380")
			_ = os.Setenv("PODIUM_REDIS_DB", "3")
			_ = os.Setenv("PODIUM_PERSIST_BATCH_SIZE", "250")
			_ = os.Setenv("PODIUM_DEFAULT_COUNTRY", "DE")
			_ = os.Setenv("PODIUM_METRICS_ENABLED", "false")
			_ = os.Setenv("PODIUM_METRICS_REFRESH_SECONDS", "30")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "redis:6380")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 3)
				convey.So(cfg.PersistBatchSize, convey.ShouldEqual, 250)
				convey.So(cfg.DefaultCountry, convey.ShouldEqual, "DE")
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 30*time.Second)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# durable store
database_driver: sqlite
database_dsn: "file:podium.db"
addr: ":9090"  # listen
finalised_retention_hours: 24
nats_url: "nats://localhost:4222"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PODIUM_CONFIG", tmpFile)
			_ = os.Setenv("PODIUM_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DatabaseDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.DatabaseDSN, convey.ShouldEqual, "file:podium.db")
				convey.So(cfg.FinalisedRetentionHours, convey.ShouldEqual, 24)
				convey.So(cfg.NATSURL, convey.ShouldEqual, "nats://localhost:4222")
			})

			convey.Convey("Then missing fields should keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ActiveWindowSeconds, convey.ShouldEqual, 120)
				convey.So(cfg.PrizeSubject, convey.ShouldEqual, "podium.prizes.award")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile("addr: [unterminated\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PODIUM_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PODIUM_CONFIG", "/nonexistent/podium.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PODIUM_MAX_PAGE_SIZE", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PODIUM_ADDR", "")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a durable driver is selected without a DSN", func() {
			_ = os.Setenv("PODIUM_DATABASE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"PODIUM_CONFIG",
		"PODIUM_ADDR",
		"PODIUM_REDIS_ADDR",
		"PODIUM_REDIS_DB",
		"PODIUM_PERSIST_BATCH_SIZE",
		"PODIUM_DEFAULT_COUNTRY",
		"PODIUM_MAX_PAGE_SIZE",
		"PODIUM_DATABASE_DRIVER",
		"PODIUM_METRICS_ENABLED",
		"PODIUM_METRICS_REFRESH_SECONDS",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "podium-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
