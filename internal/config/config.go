package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port           string
	ServiceName    string
	ServiceID      string
	ServiceAddress string
	ConsulAddress  string
	LogDir         string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	JWTExpiryDays int

	RabbitMQURI string

	FEAddress string

	Google GoogleOAuthConfig
	Email  EmailConfig
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// EmailConfig is built once at startup and passed into the email service;
// it is never mutated afterwards.
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func New() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtDays, err := strconv.Atoi(getEnv("JWT_EXPIRES_IN_DAYS", "90"))
	if err != nil || jwtDays <= 0 {
		jwtDays = 90
	}

	return &Config{
		Port:           getEnv("PORT", "9100"),
		ServiceName:    getEnv("SERVICE_NAME", "learnhub-server"),
		ServiceID:      getEnv("SERVICE_NAME", "learnhub-server") + "-" + getEnv("HOSTNAME", "1"),
		ServiceAddress: getEnv("SERVICE_ADDRESS", "learnhub-server"),
		ConsulAddress:  os.Getenv("CONSUL_ADDR"),
		LogDir:         os.Getenv("LOG_DIR"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "learnhub"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PWD"),
		RedisDB:       redisDB,

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiryDays: jwtDays,

		RabbitMQURI: os.Getenv("RABBITMQ_URI"),

		FEAddress: getEnv("FE_ADDR", "http://localhost:3000"),

		Google: GoogleOAuthConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
		Email: EmailConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "no-reply@learnhub.local"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("ENV %s not set, using fallback", key)
	return fallback
}
