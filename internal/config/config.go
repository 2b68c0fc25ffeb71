package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	Backend Backend `envPrefix:"BACKEND_"`
	Payment Payment `envPrefix:"PAYMENT_"`
	Store   Store   `envPrefix:"STORE_"`

	ProfileDBPath string `env:"PROFILE_DB_PATH" envDefault:"storefront.db"`
}

type Backend struct {
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	TimeoutSeconds int    `env:"TIMEOUT_SECONDS" envDefault:"30"`
}

type Payment struct {
	PublicKey   string `env:"PUBLIC_KEY"`
	Mode        string `env:"MODE" envDefault:"Test"`
	CallbackURL string `env:"CALLBACK_URL"`
}

type Store struct {
	ID       string `env:"ID"`
	Currency string `env:"CURRENCY" envDefault:"USD"`
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
