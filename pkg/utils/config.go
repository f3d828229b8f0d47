package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Gateway    GatewayConfig
	Credit     CreditConfig
	Rabbit     RabbitConfig
	Reconciler ReconcilerConfig
}

type AppConfig struct {
	Name          string
	Port          string
	Debug         bool
	LogPath       string
	InternalToken string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type CreditConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type RabbitConfig struct {
	URL      string
	Exchange string
}

type ReconcilerConfig struct {
	Interval         time.Duration
	RunTimeout       time.Duration
	SafetyWindow     time.Duration
	GracePeriod      time.Duration
	FundGracePeriod  time.Duration
	Workers          int
	BatchSize        int
	ScheduleDisabled bool
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 15)
	viper.SetDefault("CREDIT_TIMEOUT_SECONDS", 10)
	viper.SetDefault("RABBITMQ_EXCHANGE", "travel.bookings")
	viper.SetDefault("RECONCILE_INTERVAL_SECONDS", 120)
	viper.SetDefault("RECONCILE_RUN_TIMEOUT_SECONDS", 120)
	viper.SetDefault("RECONCILE_SAFETY_WINDOW_MINUTES", 10)
	viper.SetDefault("BOOKING_GRACE_MINUTES", 10)
	viper.SetDefault("FUND_TRANSFER_GRACE_MINUTES", 0)
	viper.SetDefault("RECONCILE_WORKERS", 4)
	viper.SetDefault("RECONCILE_BATCH_SIZE", 200)
	viper.SetDefault("RECONCILE_SCHEDULE_DISABLED", false)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:          viper.GetString("APP_NAME"),
			Port:          viper.GetString("PORT"),
			Debug:         viper.GetBool("DEBUG"),
			LogPath:       viper.GetString("LOG_PATH"),
			InternalToken: viper.GetString("INTERNAL_API_TOKEN"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Gateway: GatewayConfig{
			BaseURL:   viper.GetString("GATEWAY_BASE_URL"),
			SecretKey: viper.GetString("GATEWAY_SECRET_KEY"),
			Timeout:   time.Duration(viper.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second,
		},
		Credit: CreditConfig{
			BaseURL: viper.GetString("CREDIT_BASE_URL"),
			APIKey:  viper.GetString("CREDIT_API_KEY"),
			Timeout: time.Duration(viper.GetInt("CREDIT_TIMEOUT_SECONDS")) * time.Second,
		},
		Rabbit: RabbitConfig{
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("RABBITMQ_EXCHANGE"),
		},
		Reconciler: ReconcilerConfig{
			Interval:         time.Duration(viper.GetInt("RECONCILE_INTERVAL_SECONDS")) * time.Second,
			RunTimeout:       time.Duration(viper.GetInt("RECONCILE_RUN_TIMEOUT_SECONDS")) * time.Second,
			SafetyWindow:     time.Duration(viper.GetInt("RECONCILE_SAFETY_WINDOW_MINUTES")) * time.Minute,
			GracePeriod:      time.Duration(viper.GetInt("BOOKING_GRACE_MINUTES")) * time.Minute,
			FundGracePeriod:  time.Duration(viper.GetInt("FUND_TRANSFER_GRACE_MINUTES")) * time.Minute,
			Workers:          viper.GetInt("RECONCILE_WORKERS"),
			BatchSize:        viper.GetInt("RECONCILE_BATCH_SIZE"),
			ScheduleDisabled: viper.GetBool("RECONCILE_SCHEDULE_DISABLED"),
		},
	}

	return config, nil
}
