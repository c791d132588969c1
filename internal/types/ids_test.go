package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewWidgetID(t *testing.T) {
	at := time.Unix(1700000000, 0)

	tests := []struct {
		title string
		want  string
	}{
		{"Clock Widget", "1700000000_clockwidget"},
		{"Weather (3-day)", "1700000000_weather3day"},
		{"A Very Long Widget Title That Keeps Going", "1700000000_averylongwidgettitle"},
		{"", "1700000000_"},
		{"!!!", "1700000000_"},
	}
	for _, tt := range tests {
		if got := NewWidgetID(tt.title, at); string(got) != tt.want {
			t.Errorf("NewWidgetID(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestNewWidgetIDSlugCap(t *testing.T) {
	id := NewWidgetID(strings.Repeat("a", 100), time.Unix(1, 0))
	parts := strings.SplitN(string(id), "_", 2)
	if len(parts[1]) != 20 {
		t.Errorf("slug length = %d, want 20", len(parts[1]))
	}
}

func TestDimensionsClamp(t *testing.T) {
	tests := []struct {
		in   Dimensions
		want Dimensions
	}{
		{Dimensions{0, 0}, Dimensions{2, 2}},
		{Dimensions{3, 1}, Dimensions{3, 1}},
		{Dimensions{9, -2}, Dimensions{4, 1}},
	}
	for _, tt := range tests {
		if got := tt.in.Clamp(2); got != tt.want {
			t.Errorf("Clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestManifestNullFields(t *testing.T) {
	code := "export default () => null"
	m := Manifest{ID: "1_x", Title: "X", Code: &code}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	// URL must serialize as an explicit null, not be omitted; clients
	// branch on its presence.
	if !strings.Contains(string(data), `"url":null`) {
		t.Errorf("expected explicit null url, got %s", data)
	}
	if !strings.Contains(string(data), `"code":"export`) {
		t.Errorf("expected inline code, got %s", data)
	}
}
