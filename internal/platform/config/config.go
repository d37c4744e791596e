package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"agegate/pkg/domain"
	strutil "agegate/pkg/platform/strings"
)

// Server captures process level configuration. Everything comes from the
// environment so main stays lean.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	UpstreamTimeout time.Duration
	// AdminToken guards operator endpoints. Empty leaves them open.
	AdminToken string
	// TraceSampleRatio is the fraction of requests traced. Zero disables tracing.
	TraceSampleRatio float64

	Store        StoreConfig
	OIDC         OIDCConfig
	Verification VerificationConfig
	Redis        RedisConfig
	Audit        AuditConfig
	Bypass       BypassConfig
}

// StoreConfig points at the BigCommerce store whose catalog and carts we gate.
type StoreConfig struct {
	Domain               string // storefront origin, also the CORS allowed origin
	Hash                 string
	APIBase              string // management REST API base, e.g. https://api.bigcommerce.com
	AccessToken          string
	RestrictedCategoryID int
	StorefrontTokenTTL   time.Duration
	CatalogPageSize      int
	CatalogRefreshEvery  time.Duration // zero disables periodic refresh
	ChannelID            int
}

// OIDCConfig is the relying party registration used for the PAR flow.
type OIDCConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	AuthServers     map[string]string // authorisation server id -> issuer URL
	Purpose         string
	EssentialClaims []string
}

// VerificationConfig bounds the lifetime of flow and verification records.
type VerificationConfig struct {
	SessionSecret   string
	VerificationTTL time.Duration
	PendingTTL      time.Duration
	CookieDomain    string
}

// RedisConfig enables the shared verification store. Empty URL keeps state in process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig enables the Kafka audit publisher. No brokers keeps events in memory.
type AuditConfig struct {
	KafkaBrokers []string
	Topic        string
}

// BypassConfig controls the out-of-band bypass code accepted by /restricted-items.
type BypassConfig struct {
	CodeHashes []string // bcrypt hashes
	AllowAny   bool     // legacy: any non-empty code bypasses
}

// IsProduction reports whether strict validation applies.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	var errs []error

	cfg := Server{
		Addr:        getEnv("AGEGATE_ADDR", ":8080"),
		Environment: getEnv("AGEGATE_ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		Store: StoreConfig{
			Domain:      storeOrigin(os.Getenv("STORE_DOMAIN")),
			Hash:        os.Getenv("STORE_HASH"),
			APIBase:     getEnv("BC_API_BASE", "https://api.bigcommerce.com"),
			AccessToken: os.Getenv("BC_ACCESS_TOKEN"),
		},
		OIDC: OIDCConfig{
			ClientID:        os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret:    os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURI:     os.Getenv("OIDC_REDIRECT_URI"),
			EssentialClaims: splitList(getEnv("OIDC_ESSENTIAL_CLAIMS", "over18")),
		},
		Verification: VerificationConfig{
			SessionSecret: os.Getenv("SESSION_SECRET"),
			CookieDomain:  os.Getenv("COOKIE_DOMAIN"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Audit: AuditConfig{
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("AUDIT_TOPIC", "agegate.audit"),
		},
		Bypass: BypassConfig{
			CodeHashes: splitList(os.Getenv("BYPASS_CODE_HASHES")),
			AllowAny:   os.Getenv("BYPASS_ALLOW_ANY") == "true",
		},
	}

	cfg.UpstreamTimeout = getDuration("UPSTREAM_TIMEOUT", 10*time.Second, &errs)
	cfg.TraceSampleRatio = getFloat("TRACE_SAMPLE_RATIO", 0, &errs)
	cfg.Store.StorefrontTokenTTL = getDuration("STOREFRONT_TOKEN_TTL", 24*time.Hour, &errs)
	cfg.Store.RestrictedCategoryID = getInt("RESTRICTED_CATEGORY_ID", 0, &errs)
	cfg.Store.CatalogPageSize = getInt("CATALOG_PAGE_SIZE", 50, &errs)
	cfg.Store.CatalogRefreshEvery = getDuration("CATALOG_REFRESH_INTERVAL", 15*time.Minute, &errs)
	cfg.Store.ChannelID = getInt("BC_CHANNEL_ID", 1, &errs)
	cfg.Verification.VerificationTTL = getDuration("VERIFICATION_TTL", time.Hour, &errs)
	cfg.Verification.PendingTTL = getDuration("PENDING_TTL", 3*time.Minute, &errs)
	cfg.Redis.PoolSize = getInt("REDIS_POOL_SIZE", 10, &errs)
	cfg.Redis.MinIdleConns = getInt("REDIS_MIN_IDLE_CONNS", 2, &errs)
	cfg.Redis.DialTimeout = getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs)
	cfg.Redis.ReadTimeout = getDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs)
	cfg.Redis.WriteTimeout = getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs)

	purpose := domain.DefaultPurpose
	if raw := os.Getenv("OIDC_PURPOSE"); raw != "" {
		p, err := domain.ParsePurpose(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("OIDC_PURPOSE: %w", err))
		}
		purpose = p
	}
	cfg.OIDC.Purpose = purpose.String()

	servers, err := parseAuthServers(os.Getenv("OIDC_AUTH_SERVERS"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.OIDC.AuthServers = servers

	if cfg.Verification.SessionSecret == "" && !cfg.IsProduction() {
		// Development default; Validate rejects it in production.
		cfg.Verification.SessionSecret = "dev-session-secret-change-in-production"
	}

	if len(errs) > 0 {
		return Server{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the values a production deployment cannot run without.
func (s Server) Validate() error {
	var errs []error
	if s.Verification.VerificationTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_TTL must be positive"))
	}
	if s.Verification.PendingTTL <= 0 {
		errs = append(errs, errors.New("PENDING_TTL must be positive"))
	}
	if s.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if s.TraceSampleRatio < 0 || s.TraceSampleRatio > 1 {
		errs = append(errs, errors.New("TRACE_SAMPLE_RATIO must be between 0 and 1"))
	}
	if !s.IsProduction() {
		return errors.Join(errs...)
	}

	required := map[string]string{
		"STORE_DOMAIN":      s.Store.Domain,
		"STORE_HASH":        s.Store.Hash,
		"BC_ACCESS_TOKEN":   s.Store.AccessToken,
		"OIDC_CLIENT_ID":    s.OIDC.ClientID,
		"OIDC_REDIRECT_URI": s.OIDC.RedirectURI,
		"SESSION_SECRET":    s.Verification.SessionSecret,
		"OIDC_AUTH_SERVERS": strings.Join(mapKeys(s.OIDC.AuthServers), ","),
		"ADMIN_TOKEN":       s.AdminToken,
	}
	for name, value := range required {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required in production", name))
		}
	}
	if s.Store.RestrictedCategoryID <= 0 {
		errs = append(errs, errors.New("RESTRICTED_CATEGORY_ID is required in production"))
	}
	if len(s.Verification.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	return errors.Join(errs...)
}

// parseAuthServers reads "bank1=https://issuer1,bank2=https://issuer2".
func parseAuthServers(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range splitList(raw) {
		id, issuer, ok := strings.Cut(pair, "=")
		id, issuer = strings.TrimSpace(id), strings.TrimSpace(issuer)
		if !ok || id == "" || issuer == "" {
			return nil, fmt.Errorf("OIDC_AUTH_SERVERS: invalid entry %q", pair)
		}
		out[id] = issuer
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func getInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

// storeOrigin accepts a bare host or a full origin and returns the origin a
// browser sends, since the value is matched against Origin headers.
func storeOrigin(raw string) string {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if raw == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(raw, ","))
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
