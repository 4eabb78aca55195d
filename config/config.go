package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Pause policies decide which disconnects pause a running game.
const (
	PauseOnCurrentTurn = "current_turn"
	PauseOnAny         = "any"
)

// Grace expiry policies decide what happens when a disconnected player does
// not come back in time.
const (
	ExpiryContinue = "continue"
	ExpiryEndGame  = "end_game"
)

// Reconnect keys select how a returning client is matched to its session.
const (
	ReconnectByName  = "name"
	ReconnectByToken = "token"
)

// Database drivers for the room audit log.
const (
	DriverGorm = "gorm"
	DriverSQL  = "sql"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Room       RoomConfig       `mapstructure:"room"`
	Connection ConnectionConfig `mapstructure:"connection"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress     string        `mapstructure:"http_address"`
	RPCAddress      string        `mapstructure:"rpc_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type RoomConfig struct {
	MinPlayers        int           `mapstructure:"min_players"`
	MaxPlayers        int           `mapstructure:"max_players"`
	CodeLength        int           `mapstructure:"code_length"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`
	PausePolicy       string        `mapstructure:"pause_policy"`
	GraceExpiryPolicy string        `mapstructure:"grace_expiry_policy"`
	ReconnectKey      string        `mapstructure:"reconnect_key"`
	RequireReady      bool          `mapstructure:"require_ready"`
}

type ConnectionConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MissedHeartbeats  int           `mapstructure:"missed_heartbeats"`
	SendQueueSize     int           `mapstructure:"send_queue_size"`
	WriteWait         time.Duration `mapstructure:"write_wait"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
}

type ChatConfig struct {
	MaxLength    int `mapstructure:"max_length"`
	MaxPerMinute int `mapstructure:"max_per_minute"`
	HistorySize  int `mapstructure:"history_size"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("room.min_players", 3)
	v.SetDefault("room.max_players", 6)
	v.SetDefault("room.code_length", 4)
	v.SetDefault("room.idle_timeout", 10*time.Minute)
	v.SetDefault("room.grace_period", 2*time.Minute)
	v.SetDefault("room.pause_policy", PauseOnCurrentTurn)
	v.SetDefault("room.grace_expiry_policy", ExpiryContinue)
	v.SetDefault("room.reconnect_key", ReconnectByName)
	v.SetDefault("room.require_ready", false)

	v.SetDefault("connection.heartbeat_interval", 5*time.Second)
	v.SetDefault("connection.missed_heartbeats", 3)
	v.SetDefault("connection.send_queue_size", 64)
	v.SetDefault("connection.write_wait", 10*time.Second)
	v.SetDefault("connection.max_message_size", 64*1024)

	v.SetDefault("chat.max_length", 200)
	v.SetDefault("chat.max_per_minute", 30)
	v.SetDefault("chat.history_size", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.namespace", "roomsync")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", DriverGorm)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.dbname", "roomsync")
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("config: defaults do not decode: " + err.Error())
	}
	return &cfg
}

// LoadConfig reads config.yaml from path (optional), a .env file in the
// working directory (optional) and ROOMSYNC_* environment variables.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("roomsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	r := c.Room
	switch {
	case r.MinPlayers < 1:
		return fmt.Errorf("%w: room.min_players must be positive", ErrInvalidConfig)
	case r.MaxPlayers < r.MinPlayers:
		return fmt.Errorf("%w: room.max_players (%d) below room.min_players (%d)", ErrInvalidConfig, r.MaxPlayers, r.MinPlayers)
	case r.CodeLength < 3:
		return fmt.Errorf("%w: room.code_length must be at least 3", ErrInvalidConfig)
	case r.GracePeriod <= 0:
		return fmt.Errorf("%w: room.grace_period must be positive", ErrInvalidConfig)
	case r.IdleTimeout <= 0:
		return fmt.Errorf("%w: room.idle_timeout must be positive", ErrInvalidConfig)
	}
	if r.PausePolicy != PauseOnCurrentTurn && r.PausePolicy != PauseOnAny {
		return fmt.Errorf("%w: room.pause_policy %q", ErrInvalidConfig, r.PausePolicy)
	}
	if r.GraceExpiryPolicy != ExpiryContinue && r.GraceExpiryPolicy != ExpiryEndGame {
		return fmt.Errorf("%w: room.grace_expiry_policy %q", ErrInvalidConfig, r.GraceExpiryPolicy)
	}
	if r.ReconnectKey != ReconnectByName && r.ReconnectKey != ReconnectByToken {
		return fmt.Errorf("%w: room.reconnect_key %q", ErrInvalidConfig, r.ReconnectKey)
	}

	cc := c.Connection
	switch {
	case cc.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: connection.heartbeat_interval must be positive", ErrInvalidConfig)
	case cc.MissedHeartbeats < 1:
		return fmt.Errorf("%w: connection.missed_heartbeats must be positive", ErrInvalidConfig)
	case cc.SendQueueSize < 1:
		return fmt.Errorf("%w: connection.send_queue_size must be positive", ErrInvalidConfig)
	case cc.WriteWait <= 0:
		return fmt.Errorf("%w: connection.write_wait must be positive", ErrInvalidConfig)
	}

	if c.Chat.MaxLength < 1 || c.Chat.MaxPerMinute < 1 {
		return fmt.Errorf("%w: chat limits must be positive", ErrInvalidConfig)
	}
	if c.Chat.HistorySize < 0 {
		return fmt.Errorf("%w: chat.history_size must not be negative", ErrInvalidConfig)
	}
	if c.Database.Enabled && c.Database.Driver != DriverGorm && c.Database.Driver != DriverSQL {
		return fmt.Errorf("%w: database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	return nil
}
