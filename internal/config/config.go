package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config del key server. Las duraciones van como string ("20m") y se
// parsean en el wiring; Validate() chequea que sean parseables.
type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Keys struct {
		Lifetime        string `yaml:"lifetime"`         // vida de cada key
		Length          int    `yaml:"length"`           // largo del ID
		MaxInMemory     int    `yaml:"max_in_memory"`    // techo del registry
		CleanupInterval string `yaml:"cleanup_interval"` // intervalo del sweeper
	} `yaml:"keys"`

	Fingerprint struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"fingerprint"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		// Límite de emisión por IP (sliding window)
		MaxPerMinute int    `yaml:"max_per_minute"`
		Window       string `yaml:"window"`

		// Límite global laxo del gateway (opcional). El path de verify no
		// se limita salvo que esto esté habilitado.
		Gateway struct {
			Enabled bool   `yaml:"enabled"`
			Driver  string `yaml:"driver"` // memory | redis
			Max     int    `yaml:"max"`
			Window  string `yaml:"window"`
		} `yaml:"gateway"`
	} `yaml:"rate"`

	Gate struct {
		Enabled bool   `yaml:"enabled"`
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"gate"`

	Filter struct {
		Enabled       bool     `yaml:"enabled"`
		BlockedAgents []string `yaml:"blocked_agents"`
	} `yaml:"filter"`
}

// Load lee el YAML, aplica overrides de ENV y defaults sanos.
func Load(path string) (*Config, error) {
	var c Config
	c.seedDefaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	return &c, nil
}

// FromEnv arma la config solo desde variables de entorno.
func FromEnv() *Config {
	var c Config
	c.seedDefaults()
	c.applyEnvOverrides()
	c.applyDefaults()
	return &c
}

// seedDefaults fija los defaults booleanos que no pueden distinguirse del
// zero value. Va ANTES del YAML y de los overrides de ENV para que un
// `enabled: false` explícito (o GATE_ENABLED=false) siga desactivando el gate.
func (c *Config) seedDefaults() {
	c.Gate.Enabled = true
}

func (c *Config) applyDefaults() {
	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Keys.Lifetime == "" {
		c.Keys.Lifetime = "20m"
	}
	if c.Keys.Length == 0 {
		c.Keys.Length = 16
	}
	if c.Keys.MaxInMemory == 0 {
		c.Keys.MaxInMemory = 10000
	}
	if c.Keys.CleanupInterval == "" {
		c.Keys.CleanupInterval = "3m"
	}
	if c.Fingerprint.CacheTTL == "" {
		c.Fingerprint.CacheTTL = "60m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "nicue"
	}
	if c.Rate.MaxPerMinute == 0 {
		c.Rate.MaxPerMinute = 5
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.Gateway.Driver == "" {
		c.Rate.Gateway.Driver = "memory"
	}
	if c.Rate.Gateway.Max == 0 {
		c.Rate.Gateway.Max = 120
	}
	if c.Rate.Gateway.Window == "" {
		c.Rate.Gateway.Window = "1m"
	}
	if c.Gate.BaseURL == "" {
		c.Gate.BaseURL = "https://api.link4m.vn"
	}
	if len(c.Filter.BlockedAgents) == 0 {
		c.Filter.BlockedAgents = []string{"python-requests", "curl", "wget"}
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("KEY_LIFETIME"); ok {
		c.Keys.Lifetime = v
	}
	if v, ok := getEnvInt("KEY_LENGTH"); ok {
		c.Keys.Length = v
	}
	if v, ok := getEnvInt("MAX_KEYS_IN_MEMORY"); ok {
		c.Keys.MaxInMemory = v
	}
	if v, ok := getEnvStr("CLEANUP_INTERVAL"); ok {
		c.Keys.CleanupInterval = v
	}
	if v, ok := getEnvStr("FINGERPRINT_CACHE_TTL"); ok {
		c.Fingerprint.CacheTTL = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("CACHE_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvInt("RATE_MAX_PER_MINUTE"); ok {
		c.Rate.MaxPerMinute = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvBool("RATE_GATEWAY_ENABLED"); ok {
		c.Rate.Gateway.Enabled = v
	}
	if v, ok := getEnvStr("RATE_GATEWAY_DRIVER"); ok {
		c.Rate.Gateway.Driver = v
	}
	if v, ok := getEnvInt("RATE_GATEWAY_MAX"); ok {
		c.Rate.Gateway.Max = v
	}
	if v, ok := getEnvBool("GATE_ENABLED"); ok {
		c.Gate.Enabled = v
	}
	if v, ok := getEnvStr("GATE_API_KEY"); ok {
		c.Gate.APIKey = v
	}
	if v, ok := getEnvStr("GATE_BASE_URL"); ok {
		c.Gate.BaseURL = v
	}
	if v, ok := getEnvBool("FILTER_ENABLED"); ok {
		c.Filter.Enabled = v
	}
	if v, ok := getEnvCSV("FILTER_BLOCKED_AGENTS"); ok {
		c.Filter.BlockedAgents = v
	}
}

// Validate chequea que las duraciones parseen y los números tengan sentido.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"keys.lifetime":         c.Keys.Lifetime,
		"keys.cleanup_interval": c.Keys.CleanupInterval,
		"fingerprint.cache_ttl": c.Fingerprint.CacheTTL,
		"rate.window":           c.Rate.Window,
		"rate.gateway.window":   c.Rate.Gateway.Window,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s inválido: %w", name, err)
		}
	}
	if c.Keys.Length < 8 || c.Keys.Length > 64 {
		return fmt.Errorf("config: keys.length fuera de rango: %d", c.Keys.Length)
	}
	if c.Keys.MaxInMemory < 1 {
		return fmt.Errorf("config: keys.max_in_memory debe ser positivo")
	}
	if c.Rate.MaxPerMinute < 1 {
		return fmt.Errorf("config: rate.max_per_minute debe ser positivo")
	}
	if c.Cache.Kind != "memory" && c.Cache.Kind != "redis" {
		return fmt.Errorf("config: cache.kind desconocido: %q", c.Cache.Kind)
	}
	return nil
}

// Dur parsea una duración ya validada, con fallback.
func Dur(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && strings.TrimSpace(v) != ""
}

func getEnvInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func getEnvBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func getEnvCSV(key string) ([]string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, false
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, len(out) > 0
}
