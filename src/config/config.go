package config

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var Config JRootsConfig

func init() {
	v := viper.New()
	v.SetConfigName("jroots")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/jroots")
	v.SetEnvPrefix("jroots")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "dev")
	v.SetDefault("addr", ":9001")
	v.SetDefault("baseurl", "http://localhost:9001")
	v.SetDefault("loglevel", "debug")

	v.SetDefault("postgres.user", "jroots")
	v.SetDefault("postgres.hostname", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.dbname", "jroots")
	v.SetDefault("postgres.loglevel", "warn")
	v.SetDefault("postgres.minconn", 2)
	v.SetDefault("postgres.maxconn", 10)

	v.SetDefault("email.serveraddress", "localhost")
	v.SetDefault("email.serverport", 25)
	v.SetDefault("email.fromaddress", "noreply@jroots.co")
	v.SetDefault("email.fromname", "JRoots")

	v.SetDefault("watermark.text", "JRoots.co")
	v.SetDefault("watermark.fontpath", "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf")

	// A config file is optional; env vars alone must be enough to run.
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			panic(err)
		}
	}

	level, err := zerolog.ParseLevel(v.GetString("loglevel"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	Config = JRootsConfig{
		Env:      Environment(v.GetString("env")),
		Addr:     v.GetString("addr"),
		BaseUrl:  v.GetString("baseurl"),
		LogLevel: level,
		Postgres: PostgresConfig{
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Hostname: v.GetString("postgres.hostname"),
			Port:     v.GetInt("postgres.port"),
			DbName:   v.GetString("postgres.dbname"),
			LogLevel: v.GetString("postgres.loglevel"),
			MinConn:  v.GetInt32("postgres.minconn"),
			MaxConn:  v.GetInt32("postgres.maxconn"),
		},
		Auth: AuthConfig{
			SecretKey:    v.GetString("auth.secretkey"),
			CookieDomain: v.GetString("auth.cookiedomain"),
			CookieSecure: v.GetBool("auth.cookiesecure"),
		},
		Email: EmailConfig{
			ServerAddress:  v.GetString("email.serveraddress"),
			ServerPort:     v.GetInt("email.serverport"),
			FromAddress:    v.GetString("email.fromaddress"),
			FromName:       v.GetString("email.fromname"),
			MailerUsername: v.GetString("email.mailerusername"),
			MailerPassword: v.GetString("email.mailerpassword"),
			ForceToAddress: v.GetString("email.forcetoaddress"),
		},
		Telegram: TelegramConfig{
			BotToken:      v.GetString("telegram.bottoken"),
			ReviewChatID:  v.GetInt64("telegram.reviewchatid"),
			WebhookSecret: v.GetString("telegram.webhooksecret"),
		},
		Watermark: WatermarkConfig{
			Text:     v.GetString("watermark.text"),
			FontPath: v.GetString("watermark.fontpath"),
		},
	}
}
