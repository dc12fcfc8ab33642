package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	LLMProvider string // Provider identifier: openai, deepseek, siliconflow, ollama
	LLMAPIKey   string // LLM API key
	LLMBaseURL  string // LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-5.2, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Bookkeeping platform configuration (Fortnox-compatible API)
	PlatformBaseURL     string  // External bookkeeping API base URL
	PlatformAccessToken string  // Bearer token for the bookkeeping API
	PlatformTimeout     int     // Per-request timeout in seconds (default: 30)
	PlatformRateLimit   float64 // Requests per second against the platform (default: 4)

	// Company identity, used for SIE exports
	CompanyName      string
	CompanyOrgNumber string // organisationsnummer, e.g. 556677-8899

	// Other configurations
	Mode        string
	DSN         string
	Driver      string
	Version     string
	InstanceURL string
	Addr        string
	Data        string
	Port        int
	AIEnabled   bool
}

// Provider default configurations for LLM.
// Used when LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-5.2",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("BOKPILOT_AI_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("BOKPILOT_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("BOKPILOT_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("BOKPILOT_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("BOKPILOT_AI_LLM_TIMEOUT_SECONDS", 120)

	// AI is enabled if API key is configured
	p.AIEnabled = p.LLMAPIKey != ""

	// Validate and apply provider defaults if not explicitly set
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	// Bookkeeping platform configuration
	p.PlatformBaseURL = getEnvOrDefault("BOKPILOT_PLATFORM_BASE_URL", "https://api.fortnox.se/3")
	p.PlatformAccessToken = getEnvOrDefault("BOKPILOT_PLATFORM_ACCESS_TOKEN", "")
	p.PlatformTimeout = getEnvOrDefaultInt("BOKPILOT_PLATFORM_TIMEOUT_SECONDS", 30)
	p.PlatformRateLimit = getEnvOrDefaultFloat("BOKPILOT_PLATFORM_RATE_LIMIT_RPS", 4)

	// Company identity
	p.CompanyName = getEnvOrDefault("BOKPILOT_COMPANY_NAME", "")
	p.CompanyOrgNumber = getEnvOrDefault("BOKPILOT_COMPANY_ORGNR", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "bokpilot")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/bokpilot"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, "bokpilot_"+p.Mode+".db") + "?_loc=auto"
	}

	return nil
}
