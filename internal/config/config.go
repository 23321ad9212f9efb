// Package config resolves the client settings of the vertexgen command from the
// environment, an optional .env file and an optional YAML file.
//
// Environment variables are the primary source, matching how the Vertex AI samples are run:
//
//	API_ENDPOINT=us-central1-aiplatform.googleapis.com
//	PROJECT_ID=my-project
//	LOCATION_ID=us-central1
//	GEMINI_MODEL=gemini-pro            # optional
//	GOOGLE_ACCESS_TOKEN=ya29...        # optional, skips Application Default Credentials
//	VERTEXGEN_CONFIG=vertexgen.yaml    # optional
//
// The YAML file holds the model and the sampling parameters:
//
//	model: gemini-pro
//	generation:
//	  max_output_tokens: 2048
//	  temperature: 0.4
//	  top_p: 1
//	  top_k: 32
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/vertexgen/providers/ai"
)

// Environment variable names.
const (
	EnvAPIEndpoint = "API_ENDPOINT"
	EnvProjectID   = "PROJECT_ID"
	EnvLocationID  = "LOCATION_ID"
	EnvModel       = "GEMINI_MODEL"
	EnvAccessToken = "GOOGLE_ACCESS_TOKEN" // #nosec G101 -- variable name, not a credential
	EnvConfigFile  = "VERTEXGEN_CONFIG"
)

// Config is the resolved client configuration.
type Config struct {
	APIEndpoint string
	ProjectID   string
	LocationID  string
	// Model is empty when neither the environment nor the file names one.
	Model string
	// AccessToken, when set, is sent as is instead of asking for ADC tokens.
	AccessToken string
	Generation  *ai.GenerationConfig
}

// Options locate the optional files.
type Options struct {
	// EnvFile is loaded with godotenv. Empty means ".env", which may be missing.
	EnvFile string
	// ConfigFile overrides VERTEXGEN_CONFIG.
	ConfigFile string
}

// Load reads the .env file, then the environment, then the YAML file. Variables already set
// in the process environment win over the .env file; GEMINI_MODEL wins over the file's model.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return cfg, nil
	}

	file, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = file.Model
	}
	cfg.Generation = file.GenerationConfig()
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// FromEnv reads the variables through getenv. The error names every missing required one.
func FromEnv(getenv func(string) string) (*Config, error) {
	value := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := &Config{
		APIEndpoint: value(EnvAPIEndpoint),
		ProjectID:   value(EnvProjectID),
		LocationID:  value(EnvLocationID),
		Model:       value(EnvModel),
		AccessToken: value(EnvAccessToken),
	}

	var missing []string
	required := []struct{ key, value string }{
		{EnvAPIEndpoint, cfg.APIEndpoint},
		{EnvProjectID, cfg.ProjectID},
		{EnvLocationID, cfg.LocationID},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// File is the YAML configuration file.
type File struct {
	Model      string          `yaml:"model"`
	Generation *GenerationFile `yaml:"generation"`
}

// GenerationFile mirrors ai.GenerationConfig with YAML names.
type GenerationFile struct {
	MaxOutputTokens *int     `yaml:"max_output_tokens"`
	Temperature     *float64 `yaml:"temperature"`
	TopP            *float64 `yaml:"top_p"`
	TopK            *int     `yaml:"top_k"`
	StopSequences   []string `yaml:"stop_sequences"`
	CandidateCount  *int     `yaml:"candidate_count"`
}

// LoadFile parses a YAML file. Unknown keys are an error; an empty file is not.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var file File
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &file, nil
}

// GenerationConfig converts the generation block, returning nil when nothing is set.
func (f *File) GenerationConfig() *ai.GenerationConfig {
	if f == nil || f.Generation == nil {
		return nil
	}
	g := f.Generation
	cfg := &ai.GenerationConfig{
		MaxOutputTokens: g.MaxOutputTokens,
		Temperature:     g.Temperature,
		TopP:            g.TopP,
		TopK:            g.TopK,
		StopSequences:   g.StopSequences,
		CandidateCount:  g.CandidateCount,
	}
	if cfg.IsZero() {
		return nil
	}
	return cfg
}
