package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//document lifecycle
	//a record must reach a terminal status within this window of its creation.
	//enforced by the reconciler, never by the OCR service
	TimeoutThreshold       = 1 * time.Hour
	ReconciliationInterval = 60 * time.Second
	MaxPollAttempts        = 40
	ReconcileConcurrency   = 8

	//client status monitor
	ClientFastPollInterval        = 3 * time.Second
	ClientSlowPollInterval        = 8 * time.Second
	ClientSlowPollSwitchThreshold = 60 * time.Second
	ClientMaxSessionDuration      = 12 * time.Minute

	//upload limits
	MaxUploadSize = 10 << 20 //10mb

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//pooled http client for the OCR service and the monitor's status reads
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second
	OCRRequestTimeout   = 30 * time.Second

	//local OCR simulator (used when OCR_SERVICE_ADDR is unset)
	LocalOCRLatency = 2 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisRecordStore = 0

	//records are never expired by this service; retention is an external concern
	RedisRecordTTL = 0 * time.Second
)

var (
	RedisPassword = getEnv("REDIS_PASSWORD", "")
	AuthToken     = getEnv("API_AUTH_TOKEN", "")
	NoAuthBypass  = AuthToken == "" //dev only; set API_AUTH_TOKEN in prod

	//remote OCR job service; empty means use the in-process simulator
	OCRServiceAddr = getEnv("OCR_SERVICE_ADDR", "")

	//overridable cadence knobs, handy in staging
	ReconcileEvery   = getEnvAsDuration("RECONCILE_INTERVAL", ReconciliationInterval)
	RecordTimeout    = getEnvAsDuration("RECORD_TIMEOUT", TimeoutThreshold)
	ReconcileWorkers = getEnvAsInt("RECONCILE_CONCURRENCY", ReconcileConcurrency)
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
