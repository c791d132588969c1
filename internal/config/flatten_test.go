package config

import (
	"testing"
)

func TestFlattenNested(t *testing.T) {
	m := map[string]any{
		"listen": ":8000",
		"bundler": map[string]any{
			"path":            "esbuild",
			"timeout_seconds": 60.0,
		},
		"llm": map[string]any{
			"api_key": "sk-test123",
		},
	}
	got := Flatten(m)
	if got["listen"] != ":8000" {
		t.Errorf("expected listen=:8000, got %v", got["listen"])
	}
	if got["bundler.path"] != "esbuild" {
		t.Errorf("expected bundler.path=esbuild, got %v", got["bundler.path"])
	}
	if got["bundler.timeout_seconds"] != 60.0 {
		t.Errorf("expected bundler.timeout_seconds=60, got %v", got["bundler.timeout_seconds"])
	}
	if got["llm.api_key"] != "sk-test123" {
		t.Errorf("expected llm.api_key=sk-test123, got %v", got["llm.api_key"])
	}
	if len(got) != 4 {
		t.Errorf("expected 4 keys, got %d", len(got))
	}
}

func TestFlattenDeeplyNested(t *testing.T) {
	m := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "deep",
			},
		},
	}
	got := Flatten(m)
	if got["a.b.c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", got["a.b.c"])
	}
	if len(got) != 1 {
		t.Errorf("expected 1 key, got %d", len(got))
	}
}

func TestUnflattenNested(t *testing.T) {
	flat := map[string]any{
		"telegram.token":   "bot-token-abc",
		"telegram.chat_id": -42.0,
		"log_level":        "info",
	}
	got := Unflatten(flat)
	tg, ok := got["telegram"].(map[string]any)
	if !ok {
		t.Fatalf("expected telegram to be a map, got %T", got["telegram"])
	}
	if tg["token"] != "bot-token-abc" {
		t.Errorf("expected telegram.token=bot-token-abc, got %v", tg["token"])
	}
	if tg["chat_id"] != -42.0 {
		t.Errorf("expected telegram.chat_id=-42, got %v", tg["chat_id"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	original := map[string]any{
		"data_dir": "/home/test/.widgetsmith",
		"listen":   ":8000",
		"llm": map[string]any{
			"model":   "gpt-4o-mini",
			"api_key": "sk-test123456",
		},
		"bundler": map[string]any{
			"path": "esbuild",
		},
	}

	restored := Unflatten(Flatten(original))

	if restored["data_dir"] != original["data_dir"] || restored["listen"] != original["listen"] {
		t.Errorf("top-level values lost: %+v", restored)
	}
	llm := restored["llm"].(map[string]any)
	if llm["model"] != "gpt-4o-mini" || llm["api_key"] != "sk-test123456" {
		t.Errorf("llm values lost: %+v", llm)
	}
	bundler := restored["bundler"].(map[string]any)
	if bundler["path"] != "esbuild" {
		t.Errorf("bundler values lost: %+v", bundler)
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"llm.provider":   "openai",
		"llm.api_key":    "sk-test123456",
		"brave.api_key":  "BSA-abcdef1234",
		"telegram.token": "123456:ABCdefGHIjkl",
		"log_level":      "info",
	}
	got := MaskSecrets(flat)

	if got["llm.provider"] != "openai" || got["log_level"] != "info" {
		t.Errorf("non-secrets changed: %+v", got)
	}
	if got["llm.api_key"] != "***3456" {
		t.Errorf("expected llm.api_key=***3456, got %v", got["llm.api_key"])
	}
	if got["brave.api_key"] != "***1234" {
		t.Errorf("expected brave.api_key=***1234, got %v", got["brave.api_key"])
	}
	if got["telegram.token"] != "***Ijkl" {
		t.Errorf("expected telegram.token=***Ijkl, got %v", got["telegram.token"])
	}
}

func TestMaskSecretsShortAndEmpty(t *testing.T) {
	flat := map[string]any{
		"llm.api_key":    "ab",
		"telegram.token": "",
	}
	got := MaskSecrets(flat)
	if got["llm.api_key"] != "***ab" {
		t.Errorf("expected ***ab for a short secret, got %v", got["llm.api_key"])
	}
	if got["telegram.token"] != "" {
		t.Errorf("expected empty secret to stay empty, got %v", got["telegram.token"])
	}
}

func TestIsSecretKey(t *testing.T) {
	for key, want := range map[string]bool{
		"llm.api_key":    true,
		"brave.api_key":  true,
		"telegram.token": true,
		"llm.model":      false,
		"listen":         false,
	} {
		if IsSecretKey(key) != want {
			t.Errorf("IsSecretKey(%q) = %v, want %v", key, !want, want)
		}
	}
}
