package config

import (
	"time"
)

// Persistence backends for the ledger snapshot.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Event bus drivers.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"
)

type DB struct {
	Url           string `envconfig:"URL"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"internal/migrations"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"studentaid:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type S3 struct {
	Bucket       string `envconfig:"BUCKET"`
	Region       string `envconfig:"REGION" default:"us-east-1"`
	Endpoint     string `envconfig:"ENDPOINT"`
	UsePathStyle bool   `envconfig:"USE_PATH_STYLE" default:"false"`
}

// Idempotency configures the replay cache behind the Idempotency-Key header.
type Idempotency struct {
	TTL time.Duration `envconfig:"TTL" default:"24h"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Ledger configures the snapshot store and the workflow knobs.
type Ledger struct {
	// Key names the persisted document (file name stem, row key, redis key or object key).
	Key           string        `envconfig:"KEY" default:"studentaid_ledger_v2"`
	Backend       string        `envconfig:"BACKEND" default:"memory"`
	FilePath      string        `envconfig:"FILE_PATH" default:"data"`
	WriteBehind   bool          `envconfig:"WRITE_BEHIND" default:"false"`
	RetryInterval time.Duration `envconfig:"RETRY_INTERVAL" default:"2s"`
	UrgencyWeight float64       `envconfig:"URGENCY_WEIGHT" default:"25"`
	// StreamInterval is the keep-alive period of the websocket snapshot stream.
	StreamInterval time.Duration `envconfig:"STREAM_INTERVAL" default:"30s"`
}

type EventBus struct {
	Driver           string        `envconfig:"DRIVER" default:"memory"`
	Brokers          string        `envconfig:"BROKERS" default:"localhost:9092"`
	TopicPrefix      string        `envconfig:"TOPIC_PREFIX" default:"studentaid"`
	GroupID          string        `envconfig:"GROUP_ID" default:"studentaid"`
	Stream           string        `envconfig:"STREAM" default:"studentaid:events"`
	DLQRetryInterval time.Duration `envconfig:"DLQ_RETRY_INTERVAL" default:"5m"`
	DLQBatchSize     int           `envconfig:"DLQ_BATCH_SIZE" default:"10"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[studentaid]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env         string       `envconfig:"APP_ENV" default:"development"`
	Server      *Server      `envconfig:"SERVER"`
	Log         *Log         `envconfig:"LOG"`
	DB          *DB          `envconfig:"DATABASE"`
	Auth        *Auth        `envconfig:"AUTH"`
	Redis       *Redis       `envconfig:"REDIS"`
	S3          *S3          `envconfig:"S3"`
	RateLimit   *RateLimit   `envconfig:"RATE_LIMIT"`
	Idempotency *Idempotency `envconfig:"IDEMPOTENCY"`
	Ledger      *Ledger      `envconfig:"LEDGER"`
	EventBus    *EventBus    `envconfig:"EVENT_BUS"`
}
