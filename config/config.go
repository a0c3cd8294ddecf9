package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Room     RoomConfig     `mapstructure:"room"`
}

type ServerConfig struct {
	WSAddress      string `mapstructure:"ws_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// RoomConfig tunes room lifecycle and controller rate limiting.
type RoomConfig struct {
	EmptyTTLMinutes      int `mapstructure:"empty_ttl_minutes"`
	CommandLimit         int `mapstructure:"command_limit"`
	CommandWindowSeconds int `mapstructure:"command_window_seconds"`
}

// EmptyTTL returns the grace period before a fully disconnected room is deleted.
func (r RoomConfig) EmptyTTL() time.Duration {
	minutes := r.EmptyTTLMinutes
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// CommandWindow returns the refill window for the controller rate limiter.
func (r RoomConfig) CommandWindow() time.Duration {
	seconds := r.CommandWindowSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.ws_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9090")
	viper.SetDefault("room.empty_ttl_minutes", 30)
	viper.SetDefault("room.command_limit", 20)
	viper.SetDefault("room.command_window_seconds", 10)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
