package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"WHOSENT_TOKEN":    "123:abc",
		"WHOSENT_ADMIN_ID": "6992171884",
		"WHOSENT_DOT_PATH": "/tmp/whosent",
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Moderation.AdminID != 6992171884 {
		t.Fatalf("unexpected admin id: %d", cfg.Moderation.AdminID)
	}
	if cfg.Moderation.ReportThreshold != 3 {
		t.Fatalf("unexpected report threshold: %d", cfg.Moderation.ReportThreshold)
	}
	if cfg.Bot.RevealPrice != 25 {
		t.Fatalf("unexpected reveal price: %d", cfg.Bot.RevealPrice)
	}
	if cfg.DefaultLanguage != "ru" {
		t.Fatalf("unexpected default language: %q", cfg.DefaultLanguage)
	}
	if cfg.UpdateTimeout != 5*time.Minute {
		t.Fatalf("unexpected update timeout: %s", cfg.UpdateTimeout)
	}
	if cfg.DotPath != "/tmp/whosent" {
		t.Fatalf("unexpected dot path: %q", cfg.DotPath)
	}
}

func TestParseExpandsHomeInDotPath(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"WHOSENT_TOKEN":    "123:abc",
		"WHOSENT_ADMIN_ID": "1",
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.HasPrefix(cfg.DotPath, "~") {
		t.Fatalf("dot path was not expanded: %q", cfg.DotPath)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing token",
			env:  map[string]string{"WHOSENT_ADMIN_ID": "1"},
		},
		{
			name: "missing admin",
			env:  map[string]string{"WHOSENT_TOKEN": "x"},
		},
		{
			name: "zero threshold",
			env: map[string]string{
				"WHOSENT_TOKEN":            "x",
				"WHOSENT_ADMIN_ID":         "1",
				"WHOSENT_REPORT_THRESHOLD": "0",
			},
		},
		{
			name: "negative price",
			env: map[string]string{
				"WHOSENT_TOKEN":              "x",
				"WHOSENT_ADMIN_ID":           "1",
				"WHOSENT_REVEAL_PRICE_STARS": "-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse(context.Background(), envconfig.MapLookuper(tt.env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
