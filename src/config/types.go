package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Dev              = "dev"
)

type JRootsConfig struct {
	Env      Environment
	Addr     string
	BaseUrl  string
	LogLevel zerolog.Level

	Postgres  PostgresConfig
	Auth      AuthConfig
	Email     EmailConfig
	Telegram  TelegramConfig
	Watermark WatermarkConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel string
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type AuthConfig struct {
	// Key for signing cache validators and other derived tokens. Changing it
	// invalidates every ETag out in the wild, nothing else.
	SecretKey string

	CookieDomain string
	CookieSecure bool
}

type EmailConfig struct {
	ServerAddress  string
	ServerPort     int
	FromAddress    string
	FromName       string
	MailerUsername string
	MailerPassword string

	// All mail goes here instead of the real recipient when set. For dev.
	ForceToAddress string
}

type TelegramConfig struct {
	BotToken string

	// Chat that receives access-request messages for human review.
	ReviewChatID int64

	// Expected value of X-Telegram-Bot-Api-Secret-Token on webhook calls.
	WebhookSecret string
}

type WatermarkConfig struct {
	Text     string
	FontPath string
}
