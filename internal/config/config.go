package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "auditgraph.yaml"
	DefaultEnvFile = ".env"
)

const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNeo4j    = "neo4j"
)

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	Store    StoreConfig    `yaml:"store"`
	LLM      LLMConfig      `yaml:"llm"`
	Registry RegistryConfig `yaml:"registry"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

type StoreConfig struct {
	Driver string      `yaml:"driver"`
	DSN    string      `yaml:"dsn"`
	Neo4j  Neo4jConfig `yaml:"neo4j"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type LLMConfig struct {
	BaseURL               string  `yaml:"base_url"`
	APIKey                string  `yaml:"api_key"`
	ExtractionModel       string  `yaml:"extraction_model"`
	AnalysisModel         string  `yaml:"analysis_model"`
	ChatModel             string  `yaml:"chat_model"`
	TemperatureStructured float64 `yaml:"temperature_structured"`
	TemperatureCreative   float64 `yaml:"temperature_creative"`
	TemperatureChat       float64 `yaml:"temperature_chat"`
	MaxRetries            int     `yaml:"max_retries"`
	TimeoutSeconds        int     `yaml:"timeout_seconds"`
}

type RegistryConfig struct {
	Path    string            `yaml:"path"`
	Aliases map[string]string `yaml:"aliases"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *ProjectConfig {
	return &ProjectConfig{
		Project: "auditgraph",
		Version: 1,
		Store: StoreConfig{
			Driver: DriverNeo4j,
			Neo4j: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				Username: "neo4j",
				Database: "neo4j",
			},
		},
		LLM: LLMConfig{
			BaseURL:               "https://api.openai.com",
			ExtractionModel:       "gpt-4o-mini",
			AnalysisModel:         "gpt-4o",
			ChatModel:             "gpt-4-turbo-preview",
			TemperatureStructured: 0.0,
			TemperatureCreative:   0.3,
			TemperatureChat:       0.7,
			MaxRetries:            3,
			TimeoutSeconds:        120,
		},
		Registry: RegistryConfig{
			Path: "법령검색목록.csv",
		},
		HTTP: HTTPConfig{
			Addr:        "0.0.0.0:8000",
			CORSOrigins: []string{"http://localhost:8501", "http://127.0.0.1:8501"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the project config at path on top of Default and applies
// environment overrides. A missing file is only an error when required.
func Load(path string, required bool) (*ProjectConfig, error) {
	if _, err := os.Stat(path); err != nil && errors.Is(err, fs.ErrNotExist) && !required {
		cfg := Default()
		mergeEnv(cfg)
		if err := validateProjectConfig(cfg); err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return cfg, nil
	}
	return LoadProjectConfig(path)
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	mergeEnv(cfg)

	if err := validateProjectConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv exports variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Marshal renders cfg as YAML, used by `auditgraph init`.
func Marshal(cfg *ProjectConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func mergeEnv(cfg *ProjectConfig) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("INDEPENDENCE_EXTRACTION_MODEL"); v != "" {
		cfg.LLM.ExtractionModel = v
	}
	if v := os.Getenv("INDEPENDENCE_ANALYSIS_MODEL"); v != "" {
		cfg.LLM.AnalysisModel = v
	}
	if v := os.Getenv("INDEPENDENCE_TEMPERATURE_STRUCTURED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.TemperatureStructured = f
		}
	}
	if v := os.Getenv("INDEPENDENCE_TEMPERATURE_CREATIVE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.TemperatureCreative = f
		}
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.ChatModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.TemperatureChat = f
		}
	}
	if v := os.Getenv("AUDITGRAPH_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("AUDITGRAPH_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Store.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.Store.Neo4j.Username = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Store.Neo4j.Password = v
	}
	if v := os.Getenv("LAW_CSV_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("AUDITGRAPH_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("AUDITGRAPH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	} else if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case "", DriverNone:
		cfg.Store.Driver = DriverNone
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("store dsn is required for driver %s", cfg.Store.Driver)
		}
	case DriverNeo4j:
		if strings.TrimSpace(cfg.Store.Neo4j.URI) == "" {
			return fmt.Errorf("neo4j uri is required")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	if strings.TrimSpace(cfg.LLM.ExtractionModel) == "" || strings.TrimSpace(cfg.LLM.AnalysisModel) == "" {
		return fmt.Errorf("llm extraction and analysis models are required")
	}
	if strings.TrimSpace(cfg.LLM.ChatModel) == "" {
		return fmt.Errorf("llm chat_model is required")
	}
	for name, t := range map[string]float64{
		"temperature_structured": cfg.LLM.TemperatureStructured,
		"temperature_creative":   cfg.LLM.TemperatureCreative,
		"temperature_chat":       cfg.LLM.TemperatureChat,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("llm %s must be between 0 and 2, got %v", name, t)
		}
	}
	if cfg.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm max_retries must be at least 1")
	}
	if cfg.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("llm timeout_seconds must not be negative")
	}

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("http addr is required")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.Log.Level)
	}

	return nil
}
