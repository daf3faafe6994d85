package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:      LevelDebug,
		Output:     &buf,
		JSON:       true,
		TimeFormat: time.RFC3339,
	}

	logger := New(cfg)
	if logger == nil {
		t.Fatal("New logger should not be nil")
	}

	t.Run("Levels", func(t *testing.T) {
		for _, tc := range []struct {
			log func(string, ...any)
			msg string
		}{
			{logger.Debug, "debug msg"},
			{logger.Info, "info msg"},
			{logger.Warn, "warn msg"},
			{logger.Error, "error msg"},
		} {
			buf.Reset()
			tc.log(tc.msg)
			if !strings.Contains(buf.String(), tc.msg) {
				t.Errorf("%q not logged", tc.msg)
			}
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		if logger.GetLevel() != LevelError {
			t.Error("SetLevel failed")
		}

		buf.Reset()
		logger.Info("should not appear")
		if buf.Len() > 0 {
			t.Error("Logged info message when level was Error")
		}

		logger.SetLevel(LevelDebug)
	})

	t.Run("WithComponent", func(t *testing.T) {
		buf.Reset()
		l := logger.WithComponent("compiler")
		l.Info("msg")
		if !strings.Contains(buf.String(), "compiler") {
			t.Error("WithComponent missing component field")
		}
		if l.GetLevel() != LevelDebug {
			t.Error("component logger should share the level")
		}
	})

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		l := logger.WithFields(map[string]any{"zone": "lan"})
		l.Info("msg")
		if !strings.Contains(buf.String(), `"zone":"lan"`) {
			t.Errorf("WithFields missing fields: %s", buf.String())
		}
	})
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.WithComponent("Zones").Warn("has no name - ignoring", "element", "zone (zonefw.hcl:3)", "pos", "zonefw.hcl:3")

	line := buf.String()
	prefix := fmt.Sprintf("zonefw[%d]: [warn] zones: has no name - ignoring", os.Getpid())
	if !strings.Contains(line, prefix) {
		t.Errorf("missing header %q in %q", prefix, line)
	}
	if !strings.Contains(line, `element="zone (zonefw.hcl:3)"`) {
		t.Errorf("value with spaces should be quoted: %q", line)
	}
	if !strings.Contains(line, "pos=zonefw.hcl:3\n") {
		t.Errorf("plain value should not be quoted: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should be promoted to the header: %q", line)
	}

	buf.Reset()
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Error("debug logged at info level")
	}
}

func TestConsoleHandler_Prefix(t *testing.T) {
	defer SetPrefix(GetPrefix())
	SetPrefix("ZONEFW-TEST")

	var buf bytes.Buffer
	New(Config{Output: &buf}).Info("hello")
	if !strings.Contains(buf.String(), "zonefw-test[") {
		t.Errorf("prefix not applied: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestDefaultLogger(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default logger is nil")
	}

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	prev := Default()
	SetDefault(New(cfg))
	defer SetDefault(prev)

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	Errorf("error %s", "formatted")
	WithComponent("comp").Info("comp msg")

	out := buf.String()
	if strings.Contains(out, "] debug") {
		t.Error("debug logged at default level")
	}
	if !strings.Contains(out, "error formatted") || !strings.Contains(out, "comp: comp msg") {
		t.Errorf("default logger output incomplete: %q", out)
	}
}

func TestJSONLogParsing(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	l.Info("json test", "key", "value")

	var data map[string]any
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if data["msg"] != "json test" {
		t.Error("JSON msg field incorrect")
	}
	if data["key"] != "value" {
		t.Error("JSON extra field incorrect")
	}
	if data["level"] != "INFO" {
		t.Error("JSON level incorrect")
	}
}

func TestSetDefault_Concurrent(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	custom := New(Config{Level: LevelError, Output: &bytes.Buffer{}})
	SetDefault(custom)
	if Default() != custom {
		t.Fatal("Default did not return the logger set by SetDefault")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetDefault(custom)
		}()
		go func() {
			defer wg.Done()
			if Default() == nil {
				t.Error("Default returned nil")
			}
		}()
	}
	wg.Wait()
}
