package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupJSONRenamesKeysAndRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Level: "debug", Format: "json", Stderr: &buf})
	require.NoError(t, err)

	logger.Info("wallet loaded", "wallet", "0xabc", "private_key", "suiprivkey1qq")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "wallet loaded", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Contains(t, line, "timestamp")
	require.Equal(t, "0xabc", line["wallet"])
	require.Equal(t, RedactedValue, line["private_key"])
	require.NotContains(t, buf.String(), "suiprivkey1qq")
}

func TestSetupTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Level: "warn", Stderr: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("skipped", "outcome", "skipped", "secret", "hunter2")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "outcome=skipped")
	require.Contains(t, out, "secret="+RedactedValue)
}

func TestSetupWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creek.log")
	var buf bytes.Buffer
	logger, err := Setup(Options{File: path, Stderr: &buf})
	require.NoError(t, err)
	logger.Info("batch finished", "succeeded", 3)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "batch finished"))
	require.Contains(t, buf.String(), "batch finished")
}

func TestSetupRejectsUnknownSettings(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	require.Error(t, err)
	_, err = Setup(Options{Format: "xml"})
	require.Error(t, err)
}

func TestIsSensitive(t *testing.T) {
	require.True(t, IsSensitive("PRIVATE_KEY"))
	require.True(t, IsSensitive("wallet-secret"))
	require.True(t, IsSensitive("private_keys"))
	require.False(t, IsSensitive("wallet"))
	require.False(t, IsSensitive("digest"))
	require.Equal(t, "", MaskValue(" "))
}
