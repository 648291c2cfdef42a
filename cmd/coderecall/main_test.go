package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("storage:\n  db_path: %s\nembedding:\n  provider: local\n", filepath.Join(dir, "index.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCLI(t *testing.T) {
	configPath := writeCLIConfig(t)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "billing.go"), []byte(`package billing

// ChargeCustomer bills a customer's card
func ChargeCustomer(id string, cents int) error {
	return nil
}
`), 0644))

	out := execute(t, "--config", configPath, "status", project)
	assert.Contains(t, out, "is not indexed")

	out = execute(t, "--config", configPath, "index", project)
	assert.Contains(t, out, "Files indexed:  1")

	out = execute(t, "--config", configPath, "search", "--mode", "exact", project, "ChargeCustomer")
	assert.Contains(t, out, "billing.go:3-6")
	assert.Contains(t, out, "ChargeCustomer (function)")
	assert.Contains(t, out, "exact#1")

	out = execute(t, "--config", configPath, "status", project)
	assert.Contains(t, out, "Files:         1")
	assert.Contains(t, out, "Graph:     disabled")
}

func TestSearchRejectsUnknownBackend(t *testing.T) {
	configPath := writeCLIConfig(t)
	project := t.TempDir()

	rootCmd.SetArgs([]string{"--config", configPath, "search", "--disable", "telepathy", project, "anything"})
	rootCmd.SetOut(&bytes.Buffer{})
	err := rootCmd.Execute()
	searchDisabled = nil
	assert.ErrorContains(t, err, "unknown backend")
}
