package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name" yaml:"name"`
	Port    int               `json:"port" yaml:"port"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigJson5WithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		name: "portal",
		port: 80,
		headers: {referer: "a"},
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{port: 8080}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "portal", cfg.Name)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, map[string]string{"referer": "a"}, cfg.Headers)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "name: portal\nport: 443\n")
	writeFile(t, filepath.Join(dir, "config.local.yaml"), "name: override\n")

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "override", cfg.Name)
	require.Equal(t, 443, cfg.Port)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.local.yml"), "port: 1\n")

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.yml"))
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Port)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "portal.yaml"), "name: parent\nport: 1\n")
	nested := filepath.Join(root, "x", "y")
	require.NoError(t, os.MkdirAll(nested, 0700))
	writeFile(t, filepath.Join(root, "x", "portal.local.yaml"), "name: closer\n")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := ReadRecursively[testConfig]("portal.yaml")
	require.NoError(t, err)
	require.Equal(t, "closer", cfg.Name)
	require.Equal(t, 0, cfg.Port)
}
