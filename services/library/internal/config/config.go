package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location. LIBRARY_CONFIG overrides it.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string   `yaml:"port"`
	DatabaseURL    string   `yaml:"databaseURL"`
	LogLevel       string   `yaml:"logLevel"`
	JWTSecret      string   `yaml:"jwtSecret"`
	JWTIssuer      string   `yaml:"jwtIssuer"`
	JWTAudience    string   `yaml:"jwtAudience"`
	JWTLeeway      string   `yaml:"jwtLeeway"`
	SessionTTL     string   `yaml:"sessionTTL"`
	RedisAddr      string   `yaml:"redisAddr"`
	RedisPassword  string   `yaml:"redisPassword"`
	MinioEndpoint  string   `yaml:"minioEndpoint"`
	MinioAccessKey string   `yaml:"minioAccessKey"`
	MinioSecretKey string   `yaml:"minioSecretKey"`
	MinioBucket    string   `yaml:"minioBucket"`
	MinioUseSSL    bool     `yaml:"minioUseSSL"`
	MinioRegion    string   `yaml:"minioRegion"`
	StoragePrefix  string   `yaml:"storagePrefix"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes"`
	AMQPURL        string   `yaml:"amqpURL"`
	AMQPExchange   string   `yaml:"amqpExchange"`
	EventsStream   string   `yaml:"eventsStream"`
	TrustedProxies []string `yaml:"trustedProxies"`
}

// Load reads config from path and applies environment overrides. An empty
// path falls back to LIBRARY_CONFIG, then ConfigPath. A missing file is not
// an error; the environment alone may carry the whole configuration.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("LIBRARY_CONFIG")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	overrides := map[string]*string{
		"PORT":             &cfg.Port,
		"DATABASE_URL":     &cfg.DatabaseURL,
		"LOG_LEVEL":        &cfg.LogLevel,
		"JWT_SECRET":       &cfg.JWTSecret,
		"JWT_ISSUER":       &cfg.JWTIssuer,
		"JWT_AUDIENCE":     &cfg.JWTAudience,
		"JWT_LEEWAY":       &cfg.JWTLeeway,
		"SESSION_TTL":      &cfg.SessionTTL,
		"REDIS_ADDR":       &cfg.RedisAddr,
		"REDIS_PASSWORD":   &cfg.RedisPassword,
		"MINIO_ENDPOINT":   &cfg.MinioEndpoint,
		"MINIO_ACCESS_KEY": &cfg.MinioAccessKey,
		"MINIO_SECRET_KEY": &cfg.MinioSecretKey,
		"MINIO_BUCKET":     &cfg.MinioBucket,
		"MINIO_REGION":     &cfg.MinioRegion,
		"STORAGE_PREFIX":   &cfg.StoragePrefix,
		"AMQP_URL":         &cfg.AMQPURL,
		"AMQP_EXCHANGE":    &cfg.AMQPExchange,
		"EVENTS_STREAM":    &cfg.EventsStream,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid MINIO_USE_SSL %q", v)
		}
		cfg.MinioUseSSL = useSSL
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid MAX_UPLOAD_BYTES %q", v)
		}
		cfg.MaxUploadBytes = n
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	return nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set JWT_SECRET)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml)")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required (set in config.yaml)")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required (set in config.yaml)")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required (set in config.yaml)")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	if cfg.EventsStream != "" && cfg.RedisAddr == "" {
		return errors.New("config: eventsStream requires redisAddr")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	return nil
}

// ParseSessionTTL parses optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil || dur < 0 {
		return 0, fmt.Errorf("invalid sessionTTL duration %q", ttlStr)
	}
	return dur, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(leewayStr)
	if err != nil || dur < 0 {
		return 0, fmt.Errorf("invalid jwtLeeway duration %q", leewayStr)
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
