package redis

import "time"

// Config configures the redis store connection.
type Config struct {
	ConnectionURL  string        `env:"FSM_REDIS_URL"             envDefault:"redis://localhost:6379/0"` // Format: redis://:password@localhost:6379/0
	RetryAttempts  int           `env:"FSM_REDIS_RETRY_ATTEMPTS"  envDefault:"3"`
	RetryInterval  time.Duration `env:"FSM_REDIS_RETRY_INTERVAL"  envDefault:"2s"`
	ConnectTimeout time.Duration `env:"FSM_REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
	KeyPrefix      string        `env:"FSM_REDIS_KEY_PREFIX"      envDefault:"fsm"`
	TTL            time.Duration `env:"FSM_REDIS_TTL"             envDefault:"0s"` // Zero keeps snapshots forever.
}
