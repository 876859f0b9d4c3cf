package move

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenManifest = `[package]
name = "token"
version = "0.0.1"
edition = "2024.beta"

[dependencies]
Sui = { git = "https://github.com/MystenLabs/sui.git", subdir = "crates/sui-framework/packages/sui-framework", rev = "framework/testnet" }

[addresses]
token = "0x0"
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(body), 0644))
	return dir
}

func TestManifest_SetAddress(t *testing.T) {
	dir := writeManifest(t, tokenManifest)
	m := Manifest{}

	require.NoError(t, m.SetAddress(dir, "token", "0xabc"))

	addr, err := m.Address(dir, "token")
	require.NoError(t, err)
	want := "0x0000000000000000000000000000000000000000000000000000000000000abc"
	assert.Equal(t, want, addr)

	var doc struct {
		Package struct {
			Name        string `toml:"name"`
			PublishedAt string `toml:"published-at"`
		} `toml:"package"`
		Dependencies map[string]map[string]string `toml:"dependencies"`
	}
	_, err = toml.DecodeFile(filepath.Join(dir, ManifestFile), &doc)
	require.NoError(t, err)
	assert.Equal(t, "token", doc.Package.Name)
	assert.Equal(t, want, doc.Package.PublishedAt)
	assert.Equal(t, "framework/testnet", doc.Dependencies["Sui"]["rev"], "other tables survive the rewrite")
}

func TestManifest_ResetToUnpublished(t *testing.T) {
	dir := writeManifest(t, tokenManifest)
	m := Manifest{}

	require.NoError(t, m.SetAddress(dir, "token", "0xabc"))
	require.NoError(t, m.SetAddress(dir, "token", "0x0"))

	addr, err := m.Address(dir, "token")
	require.NoError(t, err)
	assert.Equal(t, "0x0", addr)

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "published-at")
}

func TestManifest_Errors(t *testing.T) {
	m := Manifest{}
	assert.Error(t, m.SetAddress(t.TempDir(), "token", "0x1"), "missing file")

	dir := writeManifest(t, "[addresses]\ntoken = \"0x0\"\n")
	assert.Error(t, m.SetAddress(dir, "token", "0x1"), "missing [package]")

	_, err := m.Address(writeManifest(t, tokenManifest), "deepbook")
	assert.Error(t, err)
}

func TestManifest_RewriteDropsComments(t *testing.T) {
	dir := writeManifest(t, "# pinned by hand\n"+tokenManifest)

	require.NoError(t, Manifest{}.SetAddress(dir, "token", "0x1"))

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pinned by hand")
}
