package logger

import (
	"errors"
	"testing"

	"twscraper/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input     string
		expectErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"fatal", false},
		{"disabled", false},
		{"DEBUG", false},
		{"bogus", true},
		{"", true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := parseLogLevel(test.input)
			if test.expectErr && err == nil {
				t.Errorf("expected error for level %q", test.input)
			}
			if !test.expectErr && err != nil {
				t.Errorf("unexpected error for level %q: %v", test.input, err)
			}
		})
	}
}

func TestNewWithInvalidLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "nope"})
	if err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	parent, err := New(&config.LoggingConfig{Level: "disabled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := parent.WithField("account", "alice")
	if child == parent {
		t.Error("WithField should return a new logger")
	}

	// Adding more fields to the child must not affect the parent
	_ = child.WithFields(map[string]interface{}{"batch": 1})
}

func TestTestLoggerCapturesMessages(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("pass started")
	tl.WarnWithFields("account skipped", map[string]interface{}{"account": "bob"})
	tl.WithError(errors.New("boom")).Error("search failed")

	msgs := tl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	if !tl.HasMessage("INFO", "pass started") {
		t.Error("expected captured info message")
	}
	if !tl.HasMessage("WARN", "account skipped") {
		t.Error("expected captured warn message")
	}
	if msgs[1].Fields["account"] != "bob" {
		t.Errorf("expected account field, got %v", msgs[1].Fields)
	}

	tl.Reset()
	if len(tl.Messages()) != 0 {
		t.Error("expected no messages after reset")
	}
}
