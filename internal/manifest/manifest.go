// Package manifest reads the version of a JavaScript package from its
// package.json.
//
// The file is only ever read here. Rewriting the version is left to
// `npm version`, which also commits and tags the change.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/publish-prerelease/internal/model"
)

// DefaultFile is the manifest file name looked up in the package directory.
const DefaultFile = "package.json"

// Package holds the manifest fields this tool needs. Every other field is
// ignored during decoding.
type Package struct {
	// Name is the package name (e.g. "truffle"). Optional.
	Name string `json:"name"`

	// Version is the current semantic version string.
	Version string `json:"version"`

	// Path is the file the package was loaded from. Not part of the JSON.
	Path string `json:"-"`
}

// Load reads and parses the manifest at path.
//
// Comments and trailing commas are stripped with github.com/tidwall/jsonc
// before decoding, so hand-edited manifests that npm itself would tolerate
// still load. Every failure is a CLIError with ExitManifestError.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("manifest not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("failed to read manifest %s", path), err)
	}

	return Parse(path, data)
}

// Parse decodes manifest bytes. path is only used for messages and for
// Package.Path.
func Parse(path string, data []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("failed to parse manifest %s", path), err)
	}

	pkg.Version = strings.TrimSpace(pkg.Version)
	if pkg.Version == "" {
		return nil, model.NewCLIError(model.ExitManifestError,
			fmt.Sprintf("manifest %s has no version field", path))
	}

	pkg.Path = path
	return &pkg, nil
}

// Resolve returns the manifest path for a package directory. An absolute
// file argument is returned unchanged; a relative one is joined to dir.
// An empty file means DefaultFile.
func Resolve(dir, file string) string {
	if file == "" {
		file = DefaultFile
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// File is a manifest bound to a path. It is read on every Load so that a
// branch checkout before the read is reflected.
type File struct {
	Path string
}

// Load implements the orchestrator's manifest capability.
func (f File) Load() (*Package, error) {
	return Load(f.Path)
}
