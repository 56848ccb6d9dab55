package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string
		LogDir   string `mapstructure:"log_dir"`
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		Host            string
		Port            int
		User            string
		Password        string
		Name            string
		SSLMode         string `mapstructure:"sslmode"`
		MaxOpenConns    int    `mapstructure:"max_open_conns"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns"`
		ConnMaxLifeTime int    `mapstructure:"conn_max_lifetime_min"` // минут
	} `mapstructure:"postgres"`

	AMQP struct {
		URL      string
		Exchange string
	} `mapstructure:"amqp"`

	Metrics struct {
		Enabled bool
		Addr    string
	} `mapstructure:"metrics"`

	Booking struct {
		BillingUnitMinutes     int `mapstructure:"billing_unit_minutes"`
		CheckInGraceMinutes    int `mapstructure:"check_in_grace_minutes"`
		CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"`
	} `mapstructure:"booking"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("postgres.host", "postgres")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_min", 30)
	v.SetDefault("booking.billing_unit_minutes", 60)
	v.SetDefault("booking.check_in_grace_minutes", 15)
	v.SetDefault("booking.cleanup_interval_minutes", 60)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	// минимальная валидация
	if c.Postgres.User == "" || c.Postgres.Name == "" {
		return c, fmt.Errorf("invalid config: postgres user/name must not be empty")
	}

	return c, nil
}
