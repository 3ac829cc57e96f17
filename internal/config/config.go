package config

import (
	"net/http"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// The identity store DSN is the one value the process refuses
	// to start without.
	DatabaseDSN string `env:"DATABASE_DSN,required"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SessionSecret  string `env:"SESSION_SECRET" envDefault:"supersecret"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`

	FrontendOrigin string `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:3000"`

	CalendarMaxResults int64 `env:"CALENDAR_MAX_RESULTS" envDefault:"50"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// SameSite maps the configured policy to its http constant.
// Unknown values fall back to Lax.
func (c Config) SameSite() http.SameSite {
	switch c.CookieSameSite {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}
