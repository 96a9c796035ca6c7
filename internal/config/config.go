package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/analyses"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/annotate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		// per tenant+IP request budget
		RateLimitRPS   float64 `yaml:"rateLimitRPS"`
		RateLimitBurst int     `yaml:"rateLimitBurst"`
		// WorkDir holds datasets and workbooks between download and upload.
		WorkDir string `yaml:"workDir"`
	} `yaml:"server"`

	Database struct {
		// Driver is mysql or postgres.
		Driver      string `yaml:"driver"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		Name        string `yaml:"name"`
		SSLMode     string `yaml:"sslMode"`
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	LLM      LLMConfig                  `yaml:"llm"`
	Pipeline PipelineConfig             `yaml:"pipeline"`
	Media    map[string]dataset.Columns `yaml:"media"`
	Logging  logger.Config              `yaml:"logging"`

	Auth struct {
		APIKeys []string `yaml:"apiKeys"`
	} `yaml:"auth"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"baseURL"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	OpenAIKey         string        `yaml:"openaiKey"`
	AnthropicKey      string        `yaml:"anthropicKey"`
	GeminiKey         string        `yaml:"geminiKey"`
}

type PipelineConfig struct {
	Workers            int                  `yaml:"workers"`
	TopK               int                  `yaml:"topK"`
	MaxItemsPerGroup   int                  `yaml:"maxItemsPerGroup"`
	MaxCharsPerItem    int                  `yaml:"maxCharsPerItem"`
	CrossBrandChars    int                  `yaml:"crossBrandChars"`
	PreviewChars       int                  `yaml:"previewChars"`
	HighScoreThreshold int                  `yaml:"highScoreThreshold"`
	NeutralScore       int                  `yaml:"neutralScore"`
	MinVolume          map[string]int       `yaml:"minVolume"`
	Retry              annotate.RetryPolicy `yaml:"retry"`
	AffinitySummary    bool                 `yaml:"affinitySummary"`
}

// Load reads the YAML file at path. A missing file yields the defaults so
// the CLI can run from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.SetDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 2
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	l := &c.LLM
	if l.Provider == "" {
		l.Provider = ProviderOpenAI
	}
	if l.Model == "" {
		l.Model = "gpt-4o-mini"
	}
	if l.Temperature == 0 {
		l.Temperature = 0.2
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 2000
	}
	if l.Timeout == 0 {
		l.Timeout = 2 * time.Minute
	}

	p := &c.Pipeline
	if p.Workers == 0 {
		p.Workers = 20
	}
	if p.TopK == 0 {
		p.TopK = 10
	}
	if p.MaxItemsPerGroup == 0 {
		p.MaxItemsPerGroup = 50
	}
	if p.MaxCharsPerItem == 0 {
		p.MaxCharsPerItem = 1000
	}
	if p.CrossBrandChars == 0 {
		p.CrossBrandChars = 300
	}
	if p.PreviewChars == 0 {
		p.PreviewChars = 200
	}
	if p.HighScoreThreshold == 0 {
		p.HighScoreThreshold = 6
	}
	if p.NeutralScore == 0 {
		p.NeutralScore = 4
	}
	if p.MinVolume == nil {
		p.MinVolume = map[string]int{}
	}
	for _, k := range annotation.Kinds {
		if _, ok := p.MinVolume[string(k)]; !ok {
			p.MinVolume[string(k)] = 5
		}
	}
	def := annotate.DefaultRetryPolicy()
	if p.Retry.MaxAttempts == 0 {
		p.Retry.MaxAttempts = def.MaxAttempts
	}
	if p.Retry.BaseDelay == 0 {
		p.Retry.BaseDelay = def.BaseDelay
	}
	if p.Retry.Multiplier == 0 {
		p.Retry.Multiplier = def.Multiplier
	}
	if p.Retry.MaxDelay == 0 {
		p.Retry.MaxDelay = def.MaxDelay
	}

	if c.Media == nil {
		c.Media = map[string]dataset.Columns{}
	}
	for m, cols := range defaultMedia {
		cur := c.Media[string(m)]
		if cur.Text == "" {
			cur.Text = cols.Text
		}
		if cur.Brand == "" {
			cur.Brand = cols.Brand
		}
		if cur.Weight == "" {
			cur.Weight = cols.Weight
		}
		c.Media[string(m)] = cur
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

var defaultMedia = map[annotation.Media]dataset.Columns{
	annotation.MediaAds: {
		Text:   "snapshot/body/text",
		Brand:  "ad_details/advertiser/ad_library_page_info/page_info/page_name",
		Weight: "ad_details/aaa_info/eu_total_reach",
	},
	annotation.MediaSocial: {Text: "content", Brand: "brand", Weight: "likes"},
	annotation.MediaPR:     {Text: "content", Brand: "company", Weight: "Impressions"},
}

// applyEnv fills provider keys and secrets from the environment when the
// file left them empty.
func (c *Config) applyEnv() {
	setIfEmpty(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	setIfEmpty(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setIfEmpty(&c.LLM.GeminiKey, "GEMINI_API_KEY")
	setIfEmpty(&c.Database.Password, "DB_PASSWORD")
	setIfEmpty(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setIfEmpty(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	if len(c.Auth.APIKeys) == 0 {
		if v := os.Getenv("API_KEYS"); v != "" {
			for _, k := range strings.Split(v, ",") {
				if k = strings.TrimSpace(k); k != "" {
					c.Auth.APIKeys = append(c.Auth.APIKeys, k)
				}
			}
		}
	}
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	p := c.Pipeline
	for name, v := range map[string]int{
		"pipeline.workers":           p.Workers,
		"pipeline.topK":              p.TopK,
		"pipeline.maxItemsPerGroup":  p.MaxItemsPerGroup,
		"pipeline.maxCharsPerItem":   p.MaxCharsPerItem,
		"pipeline.retry.maxAttempts": p.Retry.MaxAttempts,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	for k, v := range p.MinVolume {
		if _, err := annotation.ParseKind(k); err != nil {
			errs = append(errs, fmt.Errorf("pipeline.minVolume: %w", err))
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("pipeline.minVolume.%s must not be negative", k))
		}
	}
	return errors.Join(errs...)
}

// APIKey returns the key of the configured provider.
func (c *Config) APIKey() string {
	switch c.LLM.Provider {
	case ProviderAnthropic:
		return c.LLM.AnthropicKey
	case ProviderGemini:
		return c.LLM.GeminiKey
	default:
		return c.LLM.OpenAIKey
	}
}

// Columns returns the dataset columns of media.
func (c *Config) Columns(m annotation.Media) dataset.Columns {
	return c.Media[string(m)]
}

// Settings converts the pipeline section into analysis settings.
func (c *Config) Settings() analyses.Settings {
	p := c.Pipeline
	minVolume := make(map[annotation.Kind]int, len(p.MinVolume))
	for k, v := range p.MinVolume {
		if kind, err := annotation.ParseKind(k); err == nil {
			minVolume[kind] = v
		}
	}
	return analyses.Settings{
		Params: annotate.CallParams{
			Model:       c.LLM.Model,
			Temperature: c.LLM.Temperature,
			MaxTokens:   c.LLM.MaxTokens,
		},
		Retry:            p.Retry,
		Workers:          p.Workers,
		MinVolume:        minVolume,
		TopK:             p.TopK,
		MaxItemsPerGroup: p.MaxItemsPerGroup,
		MaxChars:         p.MaxCharsPerItem,
		CrossBrandChars:  p.CrossBrandChars,
		PreviewChars:     p.PreviewChars,
		HighScore:        p.HighScoreThreshold,
		NeutralScore:     p.NeutralScore,
		AffinitySummary:  p.AffinitySummary,
	}
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DSN returns the connection string of the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}
