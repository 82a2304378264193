package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName), false)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 1, cfg.Strip)
}

func TestLoadMissingRequiredFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"), true)
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadReadsAllKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, DefaultFileName, `
root = "third_party/zlib"
strip = 2
max_offset = 50
patches = ["patches/*.patch", "extra/fix.diff"]
log_level = "debug"
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.Equal(t, "third_party/zlib", cfg.Root)
	require.Equal(t, 2, cfg.Strip)
	require.Equal(t, 50, cfg.MaxOffset)
	require.Equal(t, []string{"patches/*.patch", "extra/fix.diff"}, cfg.Patches)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, dir, cfg.Dir)
	require.Equal(t, filepath.Join(dir, "third_party/zlib"), cfg.ResolveRoot())
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), DefaultFileName, "max_offset = 3\n")

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Strip)
	require.Equal(t, ".", cfg.Root)
	require.Equal(t, 3, cfg.MaxOffset)
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"negative strip":   "strip = -1\n",
		"wrong type":       "max_offset = \"ten\"\n",
		"unknown key":      "fuzz = 3\n",
		"bad log level":    "log_level = \"chatty\"\n",
		"empty patch glob": "patches = [\"\"]\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, t.TempDir(), DefaultFileName, content)
			_, err := Load(path, true)
			require.Error(t, err)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.NotEmpty(t, validationErr.Issues)
		})
	}
}

func TestLoadRejectsSyntaxErrors(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), DefaultFileName, "strip = = 1\n")
	_, err := Load(path, true)
	require.ErrorContains(t, err, "parse config")
}

func TestApplyEnvOverridesFileValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Dir = "/etc/gopatch"
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		EnvRoot:      "/src/project",
		EnvStrip:     " 0 ",
		EnvMaxOffset: "12",
		EnvLogLevel:  "WARN",
	}))
	require.NoError(t, err)
	require.Equal(t, "/src/project", cfg.ResolveRoot())
	require.Equal(t, 0, cfg.Strip)
	require.Equal(t, 12, cfg.MaxOffset)
	require.Equal(t, "WARN", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsNonNumericValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.ErrorContains(t, cfg.ApplyEnv(mapLookup(map[string]string{EnvStrip: "one"})), EnvStrip)
	require.ErrorContains(t, cfg.ApplyEnv(mapLookup(map[string]string{EnvMaxOffset: "far"})), EnvMaxOffset)
}

func TestValidateCatchesOverriddenValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(mapLookup(map[string]string{EnvStrip: "-2"})))
	var validationErr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &validationErr)
}

func TestReadDotEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	values, err := ReadDotEnv(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	require.Empty(t, values)

	path := writeFile(t, dir, ".env", "GOPATCH_STRIP=3\nGOPATCH_LOG_LEVEL=debug\n")
	values, err = ReadDotEnv(path)
	require.NoError(t, err)
	require.Equal(t, "3", values[EnvStrip])

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(mapLookup(values)))
	require.Equal(t, 3, cfg.Strip)
	require.Equal(t, "debug", cfg.LogLevel)
}
