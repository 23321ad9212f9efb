package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var allKeys = []string{EnvAPIEndpoint, EnvProjectID, EnvLocationID, EnvModel, EnvAccessToken, EnvConfigFile}

// clearEnv unsets keys for the test and restores them afterwards, including keys that
// godotenv sets during the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func mapEnv(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

// TestFromEnv_AllSet_ReturnsConfig checks the happy path and trimming.
func TestFromEnv_AllSet_ReturnsConfig(t *testing.T) {
	cfg, err := FromEnv(mapEnv(map[string]string{
		EnvAPIEndpoint: "us-central1-aiplatform.googleapis.com",
		EnvProjectID:   " my-project ",
		EnvLocationID:  "us-central1",
		EnvModel:       "gemini-pro-vision",
		EnvAccessToken: "ya29.token",
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ProjectID != "my-project" || cfg.Model != "gemini-pro-vision" || cfg.AccessToken != "ya29.token" {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

// TestFromEnv_Missing_NamesEveryVariable checks the combined error.
func TestFromEnv_Missing_NamesEveryVariable(t *testing.T) {
	_, err := FromEnv(mapEnv(map[string]string{EnvProjectID: "p"}))
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "API_ENDPOINT, LOCATION_ID") {
		t.Errorf("Expected both missing variables in order, got %q", err.Error())
	}
	if strings.Contains(err.Error(), EnvProjectID) {
		t.Errorf("Did not expect PROJECT_ID in %q", err.Error())
	}
}

// TestLoad_EnvFile_FillsUnsetVariables checks godotenv loading and process precedence.
func TestLoad_EnvFile_FillsUnsetVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProjectID, "from-process")
	envFile := writeFile(t, "test.env", strings.Join([]string{
		"API_ENDPOINT=europe-west4-aiplatform.googleapis.com",
		"PROJECT_ID=from-file",
		"LOCATION_ID=europe-west4",
		"GEMINI_MODEL=gemini-1.5-flash",
	}, "\n"))

	cfg, err := Load(Options{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.APIEndpoint != "europe-west4-aiplatform.googleapis.com" || cfg.LocationID != "europe-west4" {
		t.Errorf("Expected values from the env file, got %+v", cfg)
	}
	if cfg.ProjectID != "from-process" {
		t.Errorf("Expected the process variable to win, got %s", cfg.ProjectID)
	}
	if cfg.Generation != nil {
		t.Errorf("Expected no generation config without a file, got %+v", cfg.Generation)
	}
}

// TestLoad_MissingExplicitEnvFile_Fails checks that a named env file must exist.
func TestLoad_MissingExplicitEnvFile_Fails(t *testing.T) {
	clearEnv(t)
	if _, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env")}); err == nil {
		t.Error("Expected an error for a missing env file")
	}
}

// TestLoad_YAMLFile_AppliesModelAndGeneration checks the file merge and model precedence.
func TestLoad_YAMLFile_AppliesModelAndGeneration(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIEndpoint, "us-central1-aiplatform.googleapis.com")
	t.Setenv(EnvProjectID, "p")
	t.Setenv(EnvLocationID, "us-central1")
	path := writeFile(t, "vertexgen.yaml", `
model: gemini-pro
generation:
  max_output_tokens: 2048
  temperature: 0.4
  top_p: 1
  top_k: 32
  stop_sequences: ["END"]
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Model != "gemini-pro" {
		t.Errorf("Expected the file model, got %s", cfg.Model)
	}
	g := cfg.Generation
	if g == nil || *g.MaxOutputTokens != 2048 || *g.Temperature != 0.4 || *g.TopP != 1 || *g.TopK != 32 {
		t.Fatalf("Unexpected generation config %+v", g)
	}
	if g.CandidateCount != nil || len(g.StopSequences) != 1 {
		t.Errorf("Unexpected optional fields %+v", g)
	}

	t.Setenv(EnvModel, "gemini-1.5-pro")
	cfg, err = Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Model != "gemini-1.5-pro" {
		t.Errorf("Expected GEMINI_MODEL to win, got %s", cfg.Model)
	}
}

// TestLoadFile_UnknownKey_Fails checks strict decoding.
func TestLoadFile_UnknownKey_Fails(t *testing.T) {
	path := writeFile(t, "bad.yaml", "model: gemini-pro\ntemprature: 0.4\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected an error for a misspelt key")
	}
}

// TestLoadFile_Empty_IsZero checks that an empty file yields no settings.
func TestLoadFile_Empty_IsZero(t *testing.T) {
	file, err := LoadFile(writeFile(t, "empty.yaml", ""))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if file.Model != "" || file.GenerationConfig() != nil {
		t.Errorf("Expected an empty config, got %+v", file)
	}

	file, err = LoadFile(writeFile(t, "blank.yaml", "generation: {}\n"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if file.GenerationConfig() != nil {
		t.Error("Expected an empty generation block to convert to nil")
	}
}
