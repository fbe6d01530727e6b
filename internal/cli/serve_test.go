package cli

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseAliases(t *testing.T) {
	got, err := parseAliases([]string{"gpt-4o=gemma-3-270m", "claude=smollm3"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["gpt-4o"] != "gemma-3-270m" || got["claude"] != "smollm3" {
		t.Fatalf("unexpected aliases: %v", got)
	}
}

func TestParseAliasesRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"noequals", "=target", "name=", "="} {
		if _, err := parseAliases([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestNewLoggerLevelFallback(t *testing.T) {
	if lvl := newLogger("debug").GetLevel(); lvl != zerolog.DebugLevel {
		t.Fatalf("debug level = %v", lvl)
	}
	if lvl := newLogger("nonsense").GetLevel(); lvl != zerolog.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %v", lvl)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := buildRootCmd()
	for _, name := range []string{"serve", "pull", "models"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
