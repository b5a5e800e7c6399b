package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Store.Driver != DriverSQLite || cfg.Store.DSN != "sqlite://./auditgraph.db" {
			t.Fatalf("unexpected store config %+v", cfg.Store)
		}
		if cfg.LLM.TemperatureCreative != 0.5 {
			t.Fatalf("expected file temperature, got %v", cfg.LLM.TemperatureCreative)
		}
		if cfg.LLM.MaxRetries != 3 || cfg.LLM.TemperatureStructured != 0 {
			t.Fatalf("expected defaults for unset llm fields, got %+v", cfg.LLM)
		}
		if cfg.Registry.Aliases["자본시장법"] != "자본시장과 금융투자업에 관한 법률" {
			t.Fatalf("unexpected aliases %v", cfg.Registry.Aliases)
		}
		if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.Addr != "127.0.0.1:9000" {
			t.Fatalf("unexpected http config %+v", cfg.HTTP)
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "project: \"\"\nversion: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstore:\n  driver: mongo\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("sqlite without dsn", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstore:\n  driver: sqlite\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing neo4j uri", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstore:\n  driver: neo4j\n  neo4j:\n    uri: \"\"\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("empty driver disables store", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstore:\n  driver: \"\"\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Store.Driver != DriverNone {
			t.Fatalf("expected driver none, got %q", cfg.Store.Driver)
		}
	})

	t.Run("temperature out of range", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nllm:\n  temperature_creative: 3\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown log level", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nlog:\n  level: loud\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("optional missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath), false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.LLM.ExtractionModel != "gpt-4o-mini" || cfg.LLM.AnalysisModel != "gpt-4o" {
			t.Fatalf("unexpected default models %+v", cfg.LLM)
		}
		if cfg.LLM.ChatModel != "gpt-4-turbo-preview" || cfg.LLM.TemperatureChat != 0.7 {
			t.Fatalf("unexpected default chat settings %+v", cfg.LLM)
		}
		if cfg.Store.Neo4j.URI != "bolt://localhost:7687" {
			t.Fatalf("unexpected default neo4j uri %q", cfg.Store.Neo4j.URI)
		}
	})

	t.Run("required missing file fails", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), DefaultPath), true); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("AUDITGRAPH_STORE_DRIVER", "postgres")
	t.Setenv("AUDITGRAPH_STORE_DSN", "postgres://localhost/auditgraph")
	t.Setenv("LAW_CSV_PATH", "/data/laws.csv")
	t.Setenv("CORS_ORIGINS", "http://a.example, ,http://b.example")
	t.Setenv("INDEPENDENCE_TEMPERATURE_CREATIVE", "0.9")
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("expected api key from env")
	}
	if cfg.Store.Driver != DriverPostgres || cfg.Store.DSN != "postgres://localhost/auditgraph" {
		t.Fatalf("expected env store override, got %+v", cfg.Store)
	}
	if cfg.Registry.Path != "/data/laws.csv" {
		t.Fatalf("expected env registry path, got %q", cfg.Registry.Path)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "http://b.example" {
		t.Fatalf("unexpected origins %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.LLM.TemperatureCreative != 0.9 {
		t.Fatalf("expected env temperature, got %v", cfg.LLM.TemperatureCreative)
	}
	if cfg.LLM.ChatModel != "gpt-4o" || cfg.LLM.TemperatureChat != 0.2 {
		t.Fatalf("expected env chat settings, got %q %v", cfg.LLM.ChatModel, cfg.LLM.TemperatureChat)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("AUDITGRAPH_TEST_DOTENV=from-file\nAUDITGRAPH_TEST_PRESET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("AUDITGRAPH_TEST_PRESET", "from-env")
	t.Setenv("AUDITGRAPH_TEST_DOTENV", "")
	os.Unsetenv("AUDITGRAPH_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := os.Getenv("AUDITGRAPH_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("AUDITGRAPH_TEST_PRESET"); got != "from-env" {
		t.Fatalf("expected existing env preserved, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
