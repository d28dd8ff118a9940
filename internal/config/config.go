package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	UpstreamTimeout time.Duration

	// Remote gateway origin; addresses may live behind a different host.
	GatewayURL string
	AddressURL string

	// Session token lookup
	SessionKey string
	RedisAddr  string

	// Cart and checkout behaviour
	CartAddMode     string
	OrderLineReport string

	TrackingDuration time.Duration
	TrackingTick     time.Duration

	// Circuit breaker around gateway calls
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// Optional integrations, disabled when empty
	AMQPURL        string
	JaegerEndpoint string

	// CORS
	CORSAllowOrigins []string
}

const (
	AddModeOptimistic = "optimistic"
	AddModeConfirmed  = "confirmed"

	LineReportAll   = "all"
	LineReportFirst = "first"
)

// Load reads configuration from the environment, an optional .env file and an
// optional config.yaml (looked up in . and /etc/shop-client).
func Load() (Config, error) {
	// .env is a local convenience, its absence is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/shop-client")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("upstream_timeout", "10s")
	v.SetDefault("gateway_url", "http://localhost:3000")
	v.SetDefault("address_url", "")
	v.SetDefault("session_key", "userCookie")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cart_add_mode", AddModeOptimistic)
	v.SetDefault("order_line_report", LineReportAll)
	v.SetDefault("tracking_duration", "20m")
	v.SetDefault("tracking_tick", "1s")
	v.SetDefault("breaker_max_failures", 5)
	v.SetDefault("breaker_open_timeout", "30s")
	v.SetDefault("amqp_url", "")
	v.SetDefault("jaeger_endpoint", "")
	v.SetDefault("cors_allow_origins", "*")
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:               v.GetString("port"),
		UpstreamTimeout:    v.GetDuration("upstream_timeout"),
		GatewayURL:         strings.TrimRight(v.GetString("gateway_url"), "/"),
		AddressURL:         strings.TrimRight(v.GetString("address_url"), "/"),
		SessionKey:         v.GetString("session_key"),
		RedisAddr:          v.GetString("redis_addr"),
		CartAddMode:        strings.ToLower(v.GetString("cart_add_mode")),
		OrderLineReport:    strings.ToLower(v.GetString("order_line_report")),
		TrackingDuration:   v.GetDuration("tracking_duration"),
		TrackingTick:       v.GetDuration("tracking_tick"),
		BreakerMaxFailures: v.GetUint32("breaker_max_failures"),
		BreakerOpenTimeout: v.GetDuration("breaker_open_timeout"),
		AMQPURL:            v.GetString("amqp_url"),
		JaegerEndpoint:     v.GetString("jaeger_endpoint"),
		CORSAllowOrigins:   splitCSV(v.GetString("cors_allow_origins")),
	}

	if cfg.AddressURL == "" {
		cfg.AddressURL = cfg.GatewayURL
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.GatewayURL == "" {
		return errors.New("config: GATEWAY_URL is required")
	}
	if c.SessionKey == "" {
		return errors.New("config: SESSION_KEY must not be empty")
	}
	switch c.CartAddMode {
	case AddModeOptimistic, AddModeConfirmed:
	default:
		return fmt.Errorf("config: unknown CART_ADD_MODE %q", c.CartAddMode)
	}
	switch c.OrderLineReport {
	case LineReportAll, LineReportFirst:
	default:
		return fmt.Errorf("config: unknown ORDER_LINE_REPORT %q", c.OrderLineReport)
	}
	if c.TrackingTick <= 0 {
		return errors.New("config: TRACKING_TICK must be positive")
	}
	if c.TrackingDuration < c.TrackingTick {
		return errors.New("config: TRACKING_DURATION must be at least one tick")
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
