// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the tree that `loader.go` builds from three layers:
//
//   • optional `.env`                             dotenv values,
//   • `conf/global.yaml`                          primary static file,
//   • `RECIPEBOX_`-prefixed environment overrides highest precedence.
//
// Any string value beginning with `vault:` is resolved through Vault before
// unmarshalling, so the model only ever holds plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`.  Koanf ignores `yaml` tags.
//   • `Paths` is filled at runtime; YAML must not set it.

package config

import "time"

// Config is the root of the tree.
type Config struct {
	Env       string    `koanf:"env" validate:"required,oneof=development production test"`
	HTTP      HTTP      `koanf:"http"`
	Log       Log       `koanf:"log"`
	Backend   Backend   `koanf:"backend"`
	Session   Session   `koanf:"session"`
	Auth      Auth      `koanf:"auth"`
	Form      Form      `koanf:"form"`
	Stripe    Stripe    `koanf:"stripe"`
	Redis     Redis     `koanf:"redis"`
	Cache     Cache     `koanf:"cache"`
	RateLimit RateLimit `koanf:"ratelimit"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Theme     Theme     `koanf:"theme"`
	Paths     Paths     `koanf:"-"`
}

// IsProduction gates Secure cookies and HSTS.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS      bool          `koanf:"force_https"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Backend points at the recipe REST API.
type Backend struct {
	BaseURL  string        `koanf:"base_url" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout"`
	OAuthURL string        `koanf:"oauth_url" validate:"omitempty,url"`
}

// Session keys are base64 (std or url alphabet).  The block key must decode
// to 16, 24, or 32 bytes.
type Session struct {
	HashKey  string `koanf:"hash_key" validate:"required"`
	BlockKey string `koanf:"block_key" validate:"required"`
}

// Auth configures the route gate.
type Auth struct {
	LoginPath         string   `koanf:"login_path" validate:"required,startswith=/"`
	LandingPath       string   `koanf:"landing_path" validate:"required,startswith=/"`
	ProtectedPrefixes []string `koanf:"protected_prefixes" validate:"dive,startswith=/"`
	PublicPaths       []string `koanf:"public_paths" validate:"dive,startswith=/"`
}

type Form struct {
	CSRFKey string `koanf:"csrf_key"`
}

// Stripe holds only the publishable key.  An empty key disables checkout
// submission.
type Stripe struct {
	PublishableKey string `koanf:"publishable_key" validate:"omitempty,startswith=pk_"`
}

// Redis feeds payment events into the realtime hub.  Empty Addr disables it.
type Redis struct {
	Addr     string `koanf:"addr" validate:"omitempty,hostname_port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
	Channel  string `koanf:"channel"`
}

type Cache struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity" validate:"gte=0"`
}

type RateLimit struct {
	RPS   float64 `koanf:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// Theme optionally points at an on-disk directory whose templates override
// the embedded ones.
type Theme struct {
	Dir string `koanf:"dir"`
}

// Paths is resolved at runtime.
type Paths struct {
	Root string
}
