package accounts

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvConfig implements Config from environment variables, optionally
// loaded from a .env file.
type EnvConfig struct {
	SigningKey      string
	ContextKey      string
	TokenExpiration int
	Issuer          string
	Audience        []string
	ClientBaseURL   string
	BcryptCost      int
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig reads configuration from the environment. Outside of prod
// a local .env file overrides the process environment.
func LoadConfig(logger Logger) *EnvConfig {
	if logger == nil {
		logger = defLogger{}
	}

	if os.Getenv("ENV") != "prod" {
		if err := godotenv.Overload(); err != nil {
			logger.Info("no .env file loaded: %v", err)
		}
	}

	cfg := &EnvConfig{
		SigningKey:      os.Getenv("JWT_SECRET"),
		ContextKey:      envOrDefault("AUTH_COOKIE_NAME", "token"),
		TokenExpiration: envInt("TOKEN_EXPIRATION_HOURS", 24),
		Issuer:          envOrDefault("JWT_ISSUER", "accounts"),
		ClientBaseURL:   envOrDefault("CLIENT_URL", "http://localhost:5173"),
		BcryptCost:      envInt("BCRYPT_COST", DefaultBcryptCost),
	}

	if aud := os.Getenv("JWT_AUDIENCE"); aud != "" {
		for _, a := range strings.Split(aud, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Audience = append(cfg.Audience, a)
			}
		}
	}

	return cfg
}

func (c *EnvConfig) GetSigningKey() string    { return c.SigningKey }
func (c *EnvConfig) GetContextKey() string    { return c.ContextKey }
func (c *EnvConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *EnvConfig) GetIssuer() string        { return c.Issuer }
func (c *EnvConfig) GetAudience() []string    { return c.Audience }
func (c *EnvConfig) GetClientBaseURL() string { return c.ClientBaseURL }
func (c *EnvConfig) GetBcryptCost() int       { return c.BcryptCost }

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
