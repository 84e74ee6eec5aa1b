package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("aligned %d samples", 12)
	if got != "aligned 12 samples" {
		t.Errorf("Logf wrote %q", got)
	}

	// nil installs a no-op that must not call the previous logger
	got = ""
	SetLogger(nil)
	Logf("dropped")
	if got != "" {
		t.Errorf("no-op logger forwarded %q", got)
	}
}

func TestSetWarnLogger(t *testing.T) {
	original := Warnf
	defer func() { Warnf = original }()

	var warnings []string
	SetWarnLogger(func(format string, v ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, v...))
	})
	Warnf("trial %q: %v", "Reach and Grasp 1", "no tracking data")
	if len(warnings) != 1 || warnings[0] != `trial "Reach and Grasp 1": no tracking data` {
		t.Errorf("warnings = %v", warnings)
	}

	SetWarnLogger(nil)
	Warnf("muted")
	if len(warnings) != 1 {
		t.Errorf("muted warn logger still forwarded: %v", warnings)
	}
}

func TestDefaultLoggersNonNil(t *testing.T) {
	if Logf == nil || Warnf == nil {
		t.Fatal("default loggers must not be nil")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("default logger panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
	Warnf("test warning: %s", "value")
}
