package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	SystemURL   string `env:"SYSTEM_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"gateway.db"`

	Paypal Paypal `envPrefix:"PAYPAL_"`
	Fee    Fee    `envPrefix:"FEE_"`
}

type Paypal struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	WebhookID    string `env:"WEBHOOK_ID"`
	Mode         string `env:"MODE" envDefault:"live"` // live or sandbox
}

// Fee holds the processing-fee settings applied on top of each invoice total.
type Fee struct {
	Percent string `env:"PERCENT" envDefault:"5.95"`
	Fixed   string `env:"FIXED" envDefault:"0.30"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
