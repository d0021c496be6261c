package logger

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel.String() = %s; want %s", got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"", INFO},
		{" warning ", WARN},
		{"Error", ERROR},
		{"fatal", FATAL},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) should fail")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("")
	l.SetOutput(&buf)
	l.SetLevel(WARN)

	l.Debugf("debug msg")
	l.Infof("info msg")
	l.Warnf("warn msg")
	l.Errorf("error msg")

	logs := buf.String()
	if strings.Contains(logs, "debug msg") || strings.Contains(logs, "info msg") {
		t.Errorf("Unexpected log entries at level WARN: %s", logs)
	}
	for _, msg := range []string{"warn msg", "error msg"} {
		if !strings.Contains(logs, msg) {
			t.Errorf("Expected log to contain %q", msg)
		}
	}
}

func TestPrefixInLogOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("explorer")
	l.SetOutput(&buf)
	l.SetLevel(INFO)

	l.Infof("state %d", 7)
	if out := buf.String(); !strings.Contains(out, "[INFO] [explorer] state 7") {
		t.Errorf("unexpected log line: %s", out)
	}

	buf.Reset()
	l.SetPrefix("renamed")
	l.Infof("again")
	if out := buf.String(); !strings.Contains(out, "[renamed]") || strings.Contains(out, "[explorer]") {
		t.Errorf("prefix not updated: %s", out)
	}
	if l.GetPrefix() != "renamed" {
		t.Errorf("GetPrefix() = %s; want renamed", l.GetPrefix())
	}
}

func TestSetDefaultLevelAppliesToExistingLoggers(t *testing.T) {
	defer SetDefaultLevel(INFO)

	existing := NewLogger("existing")
	SetDefaultLevel(DEBUG)
	created := NewLogger("created")

	if existing.GetLevel() != DEBUG {
		t.Errorf("existing logger level = %v; want DEBUG", existing.GetLevel())
	}
	if created.GetLevel() != DEBUG {
		t.Errorf("new logger level = %v; want DEBUG", created.GetLevel())
	}
}

func TestConcurrentLoggingAndPrefixChanges(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("initial")
	l.SetOutput(&buf)
	l.SetLevel(INFO)

	const goroutines = 20
	const operations = 50
	done := make(chan bool, goroutines*2)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			for j := 0; j < operations; j++ {
				l.Infof("message %d-%d", id, j)
			}
			done <- true
		}(i)
		go func(id int) {
			for j := 0; j < operations; j++ {
				l.SetPrefix(strings.Repeat("x", id%10+1))
				l.SetLevel(LogLevel(id % 2))
			}
			done <- true
		}(i)
	}

	for i := 0; i < goroutines*2; i++ {
		<-done
	}
}

// Fatalf exits the process, so it runs in a subprocess.
func TestFatalf(t *testing.T) {
	if os.Getenv("TEST_FATAL") == "1" {
		l := NewLogger("test")
		l.Fatalf("fatal error occurred")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatalf")
	cmd.Env = append(os.Environ(), "TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	err := cmd.Run()

	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != 1 {
		t.Errorf("Expected exit code 1, got %v", err)
	}

	output := stderr.String()
	if !strings.Contains(output, "fatal error occurred") || !strings.Contains(output, "goroutine") {
		t.Errorf("Fatalf did not log expected output or stack trace:\n%s", output)
	}
}
