package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/santhosh101066/sync-player/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	adminEmail = configVar[string]{
		envKey:       "SERVER_ADMIN_EMAIL",
		flagKey:      "admin-email",
		defaultValue: "",
	}
	googleClientId = configVar[string]{
		envKey:       "SERVER_GOOGLE_CLIENT_ID",
		flagKey:      "google-client-id",
		defaultValue: "",
	}
	devAuth = configVar[bool]{
		envKey:       "SERVER_DEV_AUTH",
		flagKey:      "dev-auth",
		defaultValue: false,
	}
	historySize = configVar[int]{
		envKey:       "SERVER_HISTORY_SIZE",
		flagKey:      "history-size",
		defaultValue: 50,
	}
	snapshotBackend = configVar[string]{
		envKey:       "SERVER_SNAPSHOT_BACKEND",
		flagKey:      "snapshot-backend",
		defaultValue: "redis",
	}
	snapshotPath = configVar[string]{
		envKey:       "SERVER_SNAPSHOT_PATH",
		flagKey:      "snapshot-path",
		defaultValue: "/var/lib/sync-player/room-state.json",
	}
	snapshotInterval = configVar[int]{
		envKey:       "SERVER_SNAPSHOT_INTERVAL_MS",
		flagKey:      "snapshot-interval-ms",
		defaultValue: 2000,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(adminEmail.flagKey, adminEmail.defaultValue, "Email granted admin on authentication")
	pflag.String(googleClientId.flagKey, googleClientId.defaultValue, "Google OAuth client id (audience check)")
	pflag.Bool(devAuth.flagKey, devAuth.defaultValue, "Enable the dev auth bypass (never in production)")
	pflag.Int(historySize.flagKey, historySize.defaultValue, "Chat history capacity")
	pflag.String(snapshotBackend.flagKey, snapshotBackend.defaultValue, "Snapshot backend: redis or file")
	pflag.String(snapshotPath.flagKey, snapshotPath.defaultValue, "Snapshot file path (file backend)")
	pflag.Int(snapshotInterval.flagKey, snapshotInterval.defaultValue, "Snapshot flush interval in milliseconds")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(adminEmail.flagKey, adminEmail.envKey)
	viper.BindEnv(googleClientId.flagKey, googleClientId.envKey)
	viper.BindEnv(devAuth.flagKey, devAuth.envKey)
	viper.BindEnv(historySize.flagKey, historySize.envKey)
	viper.BindEnv(snapshotBackend.flagKey, snapshotBackend.envKey)
	viper.BindEnv(snapshotPath.flagKey, snapshotPath.envKey)
	viper.BindEnv(snapshotInterval.flagKey, snapshotInterval.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(adminEmail.flagKey, adminEmail.defaultValue)
	viper.SetDefault(googleClientId.flagKey, googleClientId.defaultValue)
	viper.SetDefault(devAuth.flagKey, devAuth.defaultValue)
	viper.SetDefault(historySize.flagKey, historySize.defaultValue)
	viper.SetDefault(snapshotBackend.flagKey, snapshotBackend.defaultValue)
	viper.SetDefault(snapshotPath.flagKey, snapshotPath.defaultValue)
	viper.SetDefault(snapshotInterval.flagKey, snapshotInterval.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	return &app.AppConfig{
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		AdminEmail:       viper.GetString(adminEmail.flagKey),
		GoogleClientId:   viper.GetString(googleClientId.flagKey),
		DevAuth:          viper.GetBool(devAuth.flagKey),
		HistorySize:      viper.GetInt(historySize.flagKey),
		SnapshotBackend:  viper.GetString(snapshotBackend.flagKey),
		SnapshotPath:     viper.GetString(snapshotPath.flagKey),
		SnapshotInterval: viper.GetInt(snapshotInterval.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	// .env is optional; real deployments use environment variables
	godotenv.Load()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
