package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Match    MatchConfig    `mapstructure:"match"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type ScoringConfig struct {
	RequiredGames int `mapstructure:"requiredGames"`
	MaxBombs      int `mapstructure:"maxBombs"`
}

type MatchConfig struct {
	StoreTimeout       time.Duration `mapstructure:"storeTimeout"`
	LockTTL            time.Duration `mapstructure:"lockTTL"`
	LockWait           time.Duration `mapstructure:"lockWait"`
	RetryAttempts      int           `mapstructure:"retryAttempts"`
	RetryInterval      time.Duration `mapstructure:"retryInterval"`
	ReadyKeyTTL        time.Duration `mapstructure:"readyKeyTTL"`
	EventChannelPrefix string        `mapstructure:"eventChannelPrefix"`
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("scoring.requiredGames", 4)
	v.SetDefault("scoring.maxBombs", 3)
	v.SetDefault("match.storeTimeout", 3*time.Second)
	v.SetDefault("match.lockTTL", 5*time.Second)
	v.SetDefault("match.lockWait", 2*time.Second)
	v.SetDefault("match.retryAttempts", 3)
	v.SetDefault("match.retryInterval", 50*time.Millisecond)
	v.SetDefault("match.readyKeyTTL", 24*time.Hour)
	v.SetDefault("match.eventChannelPrefix", "match:events")
}

// LoadConfig reads the YAML file at path. A .env file next to the binary is loaded first so
// TICHU_* variables (TICHU_DATABASE_DSN, TICHU_JWT_SECRET, ...) can override file values.
func LoadConfig(path string) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TICHU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
