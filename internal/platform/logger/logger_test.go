package logger

import "testing"

func TestSanitizeKVsRedactsSecretsButKeepsCounts(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-123",
		"tokens", 42,
		"total_tokens", 100,
		"authorization", "Bearer abc",
		"model", "dolphin-mistral",
	})
	got := map[string]interface{}{}
	for i := 0; i+1 < len(out); i += 2 {
		got[out[i].(string)] = out[i+1]
	}
	if got["api_key"] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", got["api_key"])
	}
	if got["authorization"] != "[REDACTED]" {
		t.Fatalf("authorization not redacted: %v", got["authorization"])
	}
	if got["tokens"] != 42 || got["total_tokens"] != 100 {
		t.Fatalf("token counts should pass through: %v", got)
	}
	if got["model"] != "dolphin-mistral" {
		t.Fatalf("model changed: %v", got["model"])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	log, err := New("development", "loud")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.SugaredLogger.Desugar().Core().Enabled(-1) {
		t.Fatalf("expected debug enabled for development fallback")
	}
	log = log.With("service", "test")
	log.Debug("ok", "k", "v")
}
