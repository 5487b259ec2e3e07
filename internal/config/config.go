package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPPort               string
	Env                    string
	LogLevel               string
	MasterToken            string
	DatabaseDSN            string
	DBDriver               string
	Postgres               PostgresConfig
	Storage                StorageConfig
	OneBot                 OneBotConfig
	SuperAdmins            []string
	CommandPrefixes        []string
	PermissionCacheTTL     time.Duration
	NotifyCooldown         time.Duration
	RedisURL               string
	ModerationWebhookURL   string
	ModerationWebhookToken string
	EventLogDir            string
}

// OneBotConfig descreve a conexão com a API HTTP do OneBot.
type OneBotConfig struct {
	APIURL          string
	AccessToken     string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	MaxConns        int
	MaxConnsPerHost int
	EventSecret     string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// source resolves a key from the environment first, then from the optional
// YAML file named by CONFIG_FILE.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := s.file[key]; v != "" {
		return v
	}
	return def
}

func (s source) bool(key string, def bool) bool {
	v, err := strconv.ParseBool(s.get(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func (s source) int(key string, def int) (int, error) {
	raw := s.get(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

// duration accepts Go durations ("1.5s") or a bare number of seconds.
func (s source) duration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("%s: negative duration %q", key, raw)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

// readFile loads a flat YAML mapping of env keys. Lists are joined with commas.
func readFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func Load() (*AppConfig, error) {
	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	src := source{file: file}

	pg := PostgresConfig{
		Host:     src.get("POSTGRES_HOST", ""),
		Port:     src.get("POSTGRES_PORT", ""),
		User:     src.get("POSTGRES_USER", ""),
		Password: src.get("POSTGRES_PASSWORD", ""),
		DBName:   src.get("POSTGRES_DB", ""),
		SSLMode:  src.get("POSTGRES_SSLMODE", "disable"),
	}

	// STORAGE_* wins, MINIO_* is still accepted.
	storage := StorageConfig{
		Endpoint:  src.get("STORAGE_ENDPOINT", src.get("MINIO_ENDPOINT", "")),
		AccessKey: src.get("STORAGE_ACCESS_KEY", src.get("MINIO_ACCESS_KEY", "")),
		SecretKey: src.get("STORAGE_SECRET_KEY", src.get("MINIO_SECRET_KEY", "")),
		Bucket:    src.get("STORAGE_BUCKET", src.get("MINIO_BUCKET", "")),
		Region:    src.get("STORAGE_REGION", src.get("MINIO_REGION", "")),
		UseSSL:    src.bool("STORAGE_USE_SSL", src.bool("MINIO_USE_SSL", false)),
		PublicURL: src.get("STORAGE_PUBLIC_URL", src.get("MINIO_PUBLIC_URL", "")),
	}

	dsn := src.get("DATABASE_DSN", "")
	driver := strings.ToLower(src.get("DB_DRIVER", ""))
	if driver == "" {
		switch {
		case strings.HasPrefix(strings.ToLower(dsn), "postgres"), pg.Host != "":
			driver = "postgres"
		default:
			driver = "sqlite"
		}
	}
	switch driver {
	case "postgres":
		if dsn == "" {
			dsn = buildPostgresDSN(pg)
		}
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", driver)
	}

	ob := OneBotConfig{
		APIURL:      strings.TrimSpace(src.get("ONEBOT_API_URL", "")),
		AccessToken: strings.TrimSpace(src.get("ONEBOT_ACCESS_TOKEN", "")),
		EventSecret: src.get("ONEBOT_EVENT_SECRET", ""),
	}
	if ob.Timeout, err = src.duration("ONEBOT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if ob.RetryDelay, err = src.duration("ONEBOT_RETRY_DELAY", time.Second); err != nil {
		return nil, err
	}
	if ob.MaxRetries, err = src.int("ONEBOT_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if ob.MaxConns, err = src.int("ONEBOT_MAX_CONNS", 100); err != nil {
		return nil, err
	}
	if ob.MaxConnsPerHost, err = src.int("ONEBOT_MAX_CONNS_PER_HOST", 30); err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		HTTPPort:               src.get("HTTP_PORT", "8080"),
		Env:                    src.get("APP_ENV", "development"),
		LogLevel:               strings.ToUpper(src.get("LOG_LEVEL", "INFO")),
		MasterToken:            src.get("API_MASTER_TOKEN", ""),
		DatabaseDSN:            dsn,
		DBDriver:               driver,
		Postgres:               pg,
		Storage:                storage,
		OneBot:                 ob,
		SuperAdmins:            SplitList(src.get("SUPER_ADMINS", "")),
		CommandPrefixes:        SplitList(src.get("COMMAND_PREFIXES", "/sunos,.sunos")),
		RedisURL:               strings.TrimSpace(src.get("REDIS_URL", "")),
		ModerationWebhookURL:   strings.TrimSpace(src.get("MODERATION_WEBHOOK_URL", "")),
		ModerationWebhookToken: strings.TrimSpace(src.get("MODERATION_WEBHOOK_TOKEN", "")),
		EventLogDir:            strings.TrimSpace(src.get("EVENT_LOG_DIR", "")),
	}
	if cfg.PermissionCacheTTL, err = src.duration("PERMISSION_CACHE_TTL", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyCooldown, err = src.duration("NOTIFY_COOLDOWN", 30*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SplitList parses a comma separated list, dropping blanks and duplicates.
func SplitList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func buildPostgresDSN(pg PostgresConfig) string {
	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}

	u := &url.URL{Scheme: "postgres", Host: host + ":" + port}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	if pg.DBName != "" {
		u.Path = pg.DBName
	}
	q := u.Query()
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return u.String()
}

func MustLoad() *AppConfig {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.HTTPPort == "" {
		log.Fatal("HTTP_PORT required")
	}
	if cfg.OneBot.APIURL == "" {
		log.Fatal("ONEBOT_API_URL required")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN required for postgres driver")
	}
	return cfg
}
