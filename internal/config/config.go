package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EndpointMock selects the offline auth endpoint in the client.
const EndpointMock = "mock"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret       string
		Issuer          string
		DemoCode        string
		TokenTTLMinutes int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Storage struct {
		Bucket         string
		KeyPrefix      string
		Region         string
		Endpoint       string
		PresignMinutes int
	}
	AWS struct {
		Profile string
	}
	Client struct {
		Endpoint       string
		SessionPath    string
		LogPath        string
		TimeoutSeconds int
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("LITTLESTARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/littlestars.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "little-stars")
	v.SetDefault("auth.democode", "1234")
	v.SetDefault("auth.tokenttlminutes", 7*24*60)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "student-photos")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presignminutes", 15)
	v.SetDefault("aws.profile", "")
	v.SetDefault("client.endpoint", EndpointMock)
	v.SetDefault("client.sessionpath", "data/client-session.db")
	v.SetDefault("client.logpath", "data/client.log")
	v.SetDefault("client.timeoutseconds", 15)
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c Config) PresignTTL() time.Duration {
	return time.Duration(c.Storage.PresignMinutes) * time.Minute
}

func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// LogLevel parses Log.Level, falling back to info.
func (c Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(c.Log.Level))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
