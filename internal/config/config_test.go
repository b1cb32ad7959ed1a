package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Setenv("SERVICES", "101:Ventes,102:Support")
	defer os.Unsetenv("OPENAI_API_KEY")
	defer os.Unsetenv("SERVICES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}
	if len(cfg.Services) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(cfg.Services))
	}
	if cfg.Services[0].Name != "Ventes" {
		t.Errorf("Expected first service Ventes, got %s", cfg.Services[0].Name)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when OPENAI_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("Expected default ChatModel 'gpt-4o-mini', got '%s'", cfg.ChatModel)
	}
	if cfg.TTSModel != "tts-1" {
		t.Errorf("Expected default TTSModel 'tts-1', got '%s'", cfg.TTSModel)
	}
	if cfg.STTModel != "whisper-1" {
		t.Errorf("Expected default STTModel 'whisper-1', got '%s'", cfg.STTModel)
	}
	if cfg.STTLanguage != "fr" {
		t.Errorf("Expected default STTLanguage 'fr', got '%s'", cfg.STTLanguage)
	}
	if cfg.RingTimeout != 3 {
		t.Errorf("Expected default RingTimeout 3, got %d", cfg.RingTimeout)
	}
	if cfg.ARIApp != "receptionniste" {
		t.Errorf("Expected default ARIApp 'receptionniste', got '%s'", cfg.ARIApp)
	}
}

func TestLoad_InvalidServices(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Setenv("SERVICES", "not-valid")
	defer os.Unsetenv("OPENAI_API_KEY")
	defer os.Unsetenv("SERVICES")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for malformed SERVICES")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}
	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryInitialBackoff != 100 {
		t.Errorf("Expected default RetryInitialBackoff 100, got %d", cfg.RetryInitialBackoff)
	}
	if cfg.ReconnectBackoff != 5000 {
		t.Errorf("Expected default ReconnectBackoff 5000, got %d", cfg.ReconnectBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}

func TestARIURL(t *testing.T) {
	cfg := &Config{ARIHost: "127.0.0.1", ARIPort: 5039}
	if got := cfg.ARIURL(); got != "http://127.0.0.1:5039" {
		t.Errorf("unexpected ARIURL: %s", got)
	}
}

func TestARIWebSocketURL(t *testing.T) {
	cfg := &Config{ARIHost: "127.0.0.1", ARIPort: 5039, ARIApp: "receptionniste", ARIUser: "xivo", ARIPassword: "secret"}
	want := "ws://127.0.0.1:5039/ari/events?app=receptionniste&api_key=xivo:secret"
	if got := cfg.ARIWebSocketURL(); got != want {
		t.Errorf("unexpected ARIWebSocketURL: %s", got)
	}
}
