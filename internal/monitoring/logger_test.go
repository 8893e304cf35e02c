package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestDebugf_RespectsVerbose(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	SetVerbose(false)
	Debugf("pair %s-%s", "a", "b")
	if len(lines) != 0 {
		t.Fatalf("expected no output with verbose off, got %v", lines)
	}

	SetVerbose(true)
	if !Verbose() {
		t.Fatal("Verbose() = false after SetVerbose(true)")
	}
	Debugf("pair %s-%s", "a", "b")
	if len(lines) != 1 || lines[0] != "pair a-b" {
		t.Fatalf("unexpected output: %v", lines)
	}
}
