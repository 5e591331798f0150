package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogWarnReachesOutputAtDefaultLevel(t *testing.T) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logLevelFromEnv())

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	LogWarn(logger, "numberSequence.go", "parseSequenceTail",
		"corrupt sequence value, restarting scope at 1",
		map[string]string{"agency_id": "agency-1", "value": "FUN-2026-XYZ"})

	if !strings.Contains(buf.String(), "corrupt sequence value") {
		t.Fatalf("warn entry suppressed, output = %q", buf.String())
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if got := logLevelFromEnv(); got != logrus.DebugLevel {
		t.Errorf("LOG_LEVEL=debug parsed as %s", got)
	}

	t.Setenv("LOG_LEVEL", "nonsense")
	if got := logLevelFromEnv(); got != logrus.WarnLevel {
		t.Errorf("invalid LOG_LEVEL fell back to %s, want warning", got)
	}

	t.Setenv("LOG_LEVEL", "")
	if got := logLevelFromEnv(); got != logrus.WarnLevel {
		t.Errorf("unset LOG_LEVEL defaulted to %s, want warning", got)
	}
}
