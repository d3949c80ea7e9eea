package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkspace lays out a config, a group file and one fixture file in a temp dir
func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"groups.yaml": `
groups:
  - name: egg
    display_name: Egg
    base_unit: piece
    include_any: [egg]
    exclude: [påskeegg]
  - name: melk
    display_name: Lettmelk
    base_unit: liter
    include_any: [lettmelk]
`,
		"offers.json5": `[
  {store_name: "Meny", product_name: "EGG 12 STK", raw_price: 42.00, package_text: "12 stk"},
  {store_name: "Kiwi", product_name: "Tine Lettmelk 1L", raw_price: 21.90, package_text: "1 l"},
  {store_name: "Kiwi", product_name: "Kinder påskeegg", raw_price: 29.90, package_text: "1 stk"},
]`,
		"config.yaml": `
groups:
  file: ` + filepath.Join(dir, "groups.yaml") + `
history:
  path: ` + filepath.Join(dir, "history.db") + `
log:
  level: disabled
fixtures:
  files: [` + filepath.Join(dir, "offers.json5") + `]
`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// flags are package state; reset what earlier runs may have set
	noNotify, dryRun, showAll = false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGroupsCommand(t *testing.T) {
	dir := writeWorkspace(t)

	out, err := execute(t, "groups", "--config", filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "Egg")
	assert.Contains(t, out, "Lettmelk")
	assert.Contains(t, out, "påskeegg")
}

func TestRunAndHistoryCommands(t *testing.T) {
	dir := writeWorkspace(t)
	cfg := filepath.Join(dir, "config.yaml")

	out, err := execute(t, "run", "--config", cfg, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Egg (kr/stk)")
	assert.Contains(t, out, "3.50")
	assert.Contains(t, out, "21.90")
	assert.Contains(t, out, "2 groups, 0 new best prices")

	out, err = execute(t, "history", "egg", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "EGG 12 STK")
	assert.Contains(t, out, "3.50 kr/stk")

	out, err = execute(t, "history", "brod", "--config", cfg)
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestRunCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
