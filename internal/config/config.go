package config

// Config is the top-level application configuration.
// It is loaded once at the start of an orchestration run and treated as an
// immutable snapshot for the rest of that run: no component may re-read the
// live file mid-run.
type Config struct {
	AWS      AWSConfig      `yaml:"aws"      json:"aws"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	SES      SESConfig      `yaml:"ses"      json:"ses"`
	Tags     TagConfig      `yaml:"tags"     json:"tags"`
	GenAI    GenAIConfig    `yaml:"genai"    json:"genai"`
	Logging  LoggingConfig  `yaml:"logging"  json:"logging"`
}

// AWSConfig holds AWS-level defaults used when flags are not provided.
type AWSConfig struct {
	// AccountID is the account the tool itself runs under.
	AccountID string `yaml:"account_id" json:"account_id"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `yaml:"default_profile" json:"default_profile"`

	// DefaultRegion is used when no region flag or profile region is set.
	DefaultRegion string `yaml:"default_region" json:"default_region"`

	// GlobalServiceRegion is the fixed region for account/global-scoped
	// providers (Cost Explorer, Trusted Advisor, CUR coordination).
	GlobalServiceRegion string `yaml:"global_service_region" json:"global_service_region"`
}

// DatabaseConfig locates the local registry/cache store.
type DatabaseConfig struct {
	// Path is the SQLite database file. Empty means
	// ~/.config/costpilot/costpilot.db.
	Path string `yaml:"path" json:"path"`
}

// SESConfig holds delivery settings consumed by the external email sender.
// The engine never sends mail itself; these values ride along in the
// configuration snapshot for the renderer/delivery collaborators.
type SESConfig struct {
	SendTo string `yaml:"send_to" json:"send_to"`
	From   string `yaml:"from"   json:"from"`
	Region string `yaml:"region" json:"region"`
}

// TagConfig carries cost-allocation tag filters applied to provider queries.
type TagConfig struct {
	// CostExplorerTag and CostExplorerTagValue filter CE queries to resources
	// carrying the tag value. Both empty means no filtering.
	CostExplorerTag      string `yaml:"costexplorer_tag"       json:"costexplorer_tag"`
	CostExplorerTagValue string `yaml:"costexplorer_tag_value" json:"costexplorer_tag_value"`

	// GravitonTag and GravitonTagValue scope Graviton CUR queries.
	GravitonTag      string `yaml:"graviton_tag"       json:"graviton_tag"`
	GravitonTagValue string `yaml:"graviton_tag_value" json:"graviton_tag_value"`
}

// GenAIConfig configures the optional AI question-answering backend.
type GenAIConfig struct {
	// Enabled gates all AI calls; when false Ask returns ModelUnavailable.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// ModelID is the Bedrock model identifier.
	ModelID string `yaml:"model_id" json:"model_id"`

	// Region is the Bedrock region; empty falls back to DefaultRegion.
	Region string `yaml:"region" json:"region"`

	// MaxTokens caps the response length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json"  json:"json"`
}

// Loader is the interface for reading Config from disk.
// Default implementation reads from ~/.config/costpilot/config.yaml.
type Loader interface {
	// Load reads, parses, and validates the configuration file.
	// A missing file yields the defaults, not an error.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		AWS: AWSConfig{
			DefaultRegion:       "us-east-1",
			GlobalServiceRegion: "us-east-1",
		},
		GenAI: GenAIConfig{
			ModelID:   "anthropic.claude-3-5-sonnet-20241022-v2:0",
			MaxTokens: 2048,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
