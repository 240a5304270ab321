package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Chat     ChatConfig
	AI       AIConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

type ServerConfig struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

type HTTPConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     bool
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type DatabaseConfig struct {
	MongoDB MongoConfig
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

type SecurityConfig struct {
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret     string
	ExpiryHour int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

type ChatConfig struct {
	HistoryPageSize    int
	MissedCallInterval time.Duration
}

type AIConfig struct {
	Endpoint       string
	APIKey         string
	Model          string
	MaxTokens      int
	RequestTimeout time.Duration
}

func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "WhatsGo"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("DEBUG", false),
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Port:         getEnv("HTTP_PORT", "8080"),
				Host:         getEnv("HTTP_HOST", "0.0.0.0"),
				ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", "30s"),
				WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", "30s"),
				IdleTimeout:  getEnvAsDuration("HTTP_IDLE_TIMEOUT", "60s"),
			},
			WebSocket: WebSocketConfig{
				ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER", 1024),
				WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER", 1024),
				CheckOrigin:     getEnvAsBool("WS_CHECK_ORIGIN", true),
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvAsSlice("CORS_ORIGINS", "http://localhost:3000"),
				AllowedMethods:   getEnvAsSlice("CORS_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
				AllowedHeaders:   getEnvAsSlice("CORS_HEADERS", "Origin,Content-Type,Accept,Authorization,X-Requested-With"),
				AllowCredentials: getEnvAsBool("CORS_CREDENTIALS", true),
				MaxAge:           getEnvAsDuration("CORS_MAX_AGE", "12h"),
			},
		},
		Database: DatabaseConfig{
			MongoDB: MongoConfig{
				URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database:               getEnv("MONGODB_DATABASE", "whatsgo"),
				MaxPoolSize:            getEnvAsUint64("MONGODB_MAX_POOL_SIZE", 100),
				MinPoolSize:            getEnvAsUint64("MONGODB_MIN_POOL_SIZE", 5),
				MaxConnIdleTime:        getEnvAsDuration("MONGODB_MAX_IDLE_TIME", "30m"),
				ConnectTimeout:         getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", "10s"),
				ServerSelectionTimeout: getEnvAsDuration("MONGODB_SERVER_SELECTION_TIMEOUT", "5s"),
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Secret:     getEnv("JWT_SECRET", "your-secret-key"),
				ExpiryHour: getEnvAsInt("JWT_EXPIRY_HOUR", 24),
			},
			RateLimit: RateLimitConfig{
				Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
				RequestsPerSecond: getEnvAsFloat64("RATE_LIMIT_RPS", 20),
				Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
			},
		},
		Chat: ChatConfig{
			HistoryPageSize:    getEnvAsInt("HISTORY_PAGE_SIZE", 50),
			MissedCallInterval: getEnvAsDuration("MISSED_CALL_SWEEP_INTERVAL", "15s"),
		},
		AI: AIConfig{
			Endpoint:       getEnv("AI_API_ENDPOINT", "https://api.anthropic.com/v1/messages"),
			APIKey:         getEnv("AI_API_KEY", ""),
			Model:          getEnv("AI_MODEL", "claude-3-5-haiku-latest"),
			MaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 1024),
			RequestTimeout: getEnvAsDuration("AI_REQUEST_TIMEOUT", "30s"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}
