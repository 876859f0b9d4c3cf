package move

import (
	"bytes"
	"fmt"
	"path/filepath"

	"deepbook_go/internal/domain"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/atomicfile"
)

// ManifestFile is the package manifest inside a Move package directory.
const ManifestFile = "Move.toml"

// unpublished is the placeholder address of a package that has not been published yet.
const unpublished = "0x0"

// Manifest rewrites named addresses in Move.toml files.
type Manifest struct{}

// SetAddress points the named address (and published-at) of the package in dir at packageID.
// Passing "0x0" resets the package to unpublished so it can be built for a fresh publish.
// The file is decoded and re-encoded whole: comments and key order are not preserved.
func (Manifest) SetAddress(dir, name, packageID string) error {
	path := filepath.Join(dir, ManifestFile)

	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("failed to load manifest %q: %w", path, err)
	}

	pkg, ok := doc["package"].(map[string]any)
	if !ok {
		return fmt.Errorf("manifest %q has no [package] table", path)
	}
	addrs, ok := doc["addresses"].(map[string]any)
	if !ok {
		addrs = make(map[string]any)
		doc["addresses"] = addrs
	}

	if packageID == unpublished {
		addrs[name] = unpublished
		delete(pkg, "published-at")
	} else {
		id := domain.NormalizeID(packageID)
		addrs[name] = id
		pkg["published-at"] = id
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode manifest %q: %w", path, err)
	}
	if _, err := atomicfile.WriteAll(path, &buf, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %q: %w", path, err)
	}
	return nil
}

// Address reads the named address from the manifest in dir.
func (Manifest) Address(dir, name string) (string, error) {
	var doc struct {
		Addresses map[string]string `toml:"addresses"`
	}
	path := filepath.Join(dir, ManifestFile)
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return "", fmt.Errorf("failed to load manifest %q: %w", path, err)
	}
	addr, ok := doc.Addresses[name]
	if !ok {
		return "", fmt.Errorf("manifest %q has no address %q", path, name)
	}
	return addr, nil
}
