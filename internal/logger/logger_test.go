package logger

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Level = INFO

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	compLogger.Debug("This should not appear")
	compLogger.Info("This should appear")
	compLogger.Warn("This should appear")
	compLogger.Error("This should appear")

	output := buf.String()
	if strings.Contains(output, "This should not appear") {
		t.Error("DEBUG message should be filtered out")
	}
	if got := strings.Count(output, "This should appear"); got != 3 {
		t.Errorf("Expected 3 INFO/WARN/ERROR lines, got %d", got)
	}
}

func TestLogger_Components(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Components[ComponentScanner] = false

	logger := New(config)
	appLogger := logger.WithComponent(ComponentApp)
	scannerLogger := logger.WithComponent(ComponentScanner)

	appLogger.Info("App message")
	scannerLogger.Info("Scanner message")

	output := buf.String()
	if !strings.Contains(output, "App message") {
		t.Error("App message should appear")
	}
	if strings.Contains(output, "Scanner message") {
		t.Error("Scanner message should be filtered out")
	}

	logger.EnableComponent(ComponentScanner)
	scannerLogger.Info("Scanner enabled")
	if !strings.Contains(buf.String(), "Scanner enabled") {
		t.Error("Scanner message should appear once enabled")
	}
}

func TestLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Format = FormatJSON

	logger := New(config)
	compLogger := logger.WithComponent(ComponentResolver)

	compLogger.Info("Test message", map[string]interface{}{
		"key": "value",
	})

	output := buf.String()
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Errorf("JSON format should contain level name, got %s", output)
	}
	if !strings.Contains(output, `"component":"resolver"`) {
		t.Error("JSON format should contain component field")
	}
	if !strings.Contains(output, `"message":"Test message"`) {
		t.Error("JSON format should contain message field")
	}
}

func TestLogger_ColorFormat(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Format = FormatColor

	logger := New(config)
	logger.WithComponent(ComponentSession).Warn("colored", map[string]interface{}{"k": "v"})

	output := buf.String()
	for _, want := range []string{"WARN", "session", "colored", "k", "v"} {
		if !strings.Contains(output, want) {
			t.Errorf("color output %q should contain %q", output, want)
		}
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	compLogger.Info("Test message", map[string]interface{}{
		"url":   "https://example.com",
		"count": 42,
	})

	output := buf.String()
	if !strings.Contains(output, "count=42 url=https://example.com") {
		t.Errorf("Fields should be included in sorted order, got %q", output)
	}
}

func TestLogger_Timestamp(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Timestamp = true

	logger := New(config)
	logger.WithComponent(ComponentApp).Info("Test message")

	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} `).MatchString(buf.String()) {
		t.Errorf("Timestamp should prefix output, got %q", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	SetGlobalLogger(New(config))
	WithComponent(ComponentApp).Info("Global logger test")

	if !strings.Contains(buf.String(), "Global logger test") {
		t.Error("Global logger should work")
	}
}

func TestLogger_Enabled(t *testing.T) {
	config := DefaultConfig()
	config.Level = WARN
	logger := New(config)
	if logger.Enabled(INFO, ComponentApp) {
		t.Error("INFO should be disabled at WARN level")
	}
	if !logger.Enabled(ERROR, ComponentApp) {
		t.Error("ERROR should be enabled at WARN level")
	}
	if logger.Enabled(ERROR, ComponentClient) {
		t.Error("client component is disabled by default")
	}
}

func TestLogger_Concurrency(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			compLogger.Info("Concurrent message", map[string]interface{}{
				"goroutine": i,
			})
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 10 {
		t.Errorf("Expected 10 log lines, got %d", len(lines))
	}
}

func TestLogger_ComponentConstants(t *testing.T) {
	expected := map[Component]string{
		ComponentApp:      "app",
		ComponentResolver: "resolver",
		ComponentScanner:  "scanner",
		ComponentSession:  "session",
		ComponentClient:   "client",
		ComponentScript:   "script",
		ComponentProxy:    "proxy",
		ComponentWatch:    "watch",
	}

	for component, expectedValue := range expected {
		if string(component) != expectedValue {
			t.Errorf("Component %s should have value %s, got %s", component, expectedValue, string(component))
		}
	}
}
