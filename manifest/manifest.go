// Package manifest implements the manifest.json document embedded in
// every LGX package: its schema, defaults, JSON (de)serialization, and
// the intrinsic and completeness validation rules that are independent
// of any particular archive's entry list.
package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lgxpkg/lgx/errs"
	"github.com/lgxpkg/lgx/internal/pathutil"
)

// DefaultVersion is the version assigned to a freshly created manifest.
const DefaultVersion = "0.0.1"

// DefaultManifestVersion is the schema version written by Default.
const DefaultManifestVersion = "0.1.0"

// Manifest is the structured metadata document stored as manifest.json
// at the root of every LGX archive. Field order here is also the JSON
// key order on emit: manifestVersion, name, version, description,
// author, type, category, icon, dependencies, main.
type Manifest struct {
	ManifestVersion string   `json:"manifestVersion"`
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Description     string   `json:"description"`
	Author          string   `json:"author"`
	Type            string   `json:"type"`
	Category        string   `json:"category"`
	Icon            string   `json:"icon"`
	Dependencies    []string `json:"dependencies"`

	// Main maps a lowercased variant name to the relative archive path
	// of that variant's entry point. encoding/json marshals string map
	// keys in ascending byte order, which is exactly the ordering this
	// format requires.
	Main map[string]string `json:"main"`
}

// Default returns a new Manifest with the defaults required on create:
// manifestVersion DefaultManifestVersion, version "0.0.1", name set to
// the case-folded name, every other string field empty, and empty
// dependencies and main.
func Default(name string) *Manifest {
	return &Manifest{
		ManifestVersion: DefaultManifestVersion,
		Name:            pathutil.ToLower(name),
		Version:         DefaultVersion,
		Dependencies:    []string{},
		Main:            map[string]string{},
	}
}

// requiredStringFields lists, in declaration order, the Manifest fields
// that must be present as JSON strings.
var requiredStringFields = []string{
	"manifestVersion", "name", "version", "description", "author",
	"type", "category", "icon",
}

// FromJSON strictly parses data into a Manifest. Required fields must be
// present and of the correct JSON kind; any deviation names the
// offending field in the returned error. Keys of main are lowercased
// regardless of their casing in the input, to enforce the canonical form.
func FromJSON(data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.InvalidManifest, err, "manifest.json is not a JSON object")
	}

	for _, field := range requiredStringFields {
		v, ok := raw[field]
		if !ok {
			return nil, errs.New(errs.InvalidManifest, "manifest.json: missing required field %q", field)
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, errs.New(errs.InvalidManifest, "manifest.json: field %q must be a string", field)
		}
	}

	if depsRaw, ok := raw["dependencies"]; ok {
		var deps []string
		if err := json.Unmarshal(depsRaw, &deps); err != nil {
			return nil, errs.New(errs.InvalidManifest, "manifest.json: field %q must be an array of strings", "dependencies")
		}
	} else {
		return nil, errs.New(errs.InvalidManifest, "manifest.json: missing required field %q", "dependencies")
	}

	if mainRaw, ok := raw["main"]; ok {
		var main map[string]string
		if err := json.Unmarshal(mainRaw, &main); err != nil {
			return nil, errs.New(errs.InvalidManifest, "manifest.json: field %q must be an object of strings", "main")
		}
	} else {
		return nil, errs.New(errs.InvalidManifest, "manifest.json: missing required field %q", "main")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.InvalidManifest, err, "manifest.json: failed to decode")
	}
	if m.Dependencies == nil {
		m.Dependencies = []string{}
	}
	if m.Main == nil {
		m.Main = map[string]string{}
	}

	folded := make(map[string]string, len(m.Main))
	for k, v := range m.Main {
		folded[pathutil.ToLower(k)] = v
	}
	m.Main = folded

	return &m, nil
}

// ToJSON emits the manifest with the fixed schema key order, two-space
// indentation, UTF-8, no byte-order mark, and no trailing whitespace.
func (m *Manifest) ToJSON() ([]byte, error) {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.InvalidManifest, err, "failed to encode manifest")
	}
	return out, nil
}

// Validate runs the intrinsic checks from spec.md §4.E: supported major
// version, non-empty name/version, case-folded main keys, and archive-path
// valid main values. It does not check completeness against any
// directory tree; see CheckCompleteness for that.
func (m *Manifest) Validate() error {
	major, _, ok := splitMajor(m.ManifestVersion)
	if !ok || major != "0" {
		return errs.New(errs.InvalidManifest, "unsupported manifest_version %q: major component must be 0", m.ManifestVersion)
	}
	if m.Name == "" {
		return errs.New(errs.InvalidManifest, "name is required")
	}
	if m.Version == "" {
		return errs.New(errs.InvalidManifest, "version is required")
	}
	keys := sortedKeys(m.Main)
	for _, k := range keys {
		if folded := pathutil.ToLower(k); folded != k {
			return errs.New(errs.InvalidManifest, "main key %q is not case-folded (expected %q)", k, folded)
		}
		v := m.Main[k]
		if err := pathutil.ValidateArchivePath(v); err != nil {
			return errs.Wrap(errs.InvalidManifest, err, "main[%q] is not a valid archive path", k)
		}
	}
	return nil
}

// CheckCompleteness compares main's keys against variantDirs, the
// lowercased set of directory names immediately under variants/, and
// returns one error per key in main\variantDirs (missing directory) and
// one per name in variantDirs\main (missing manifest entry). The
// returned slice is sorted for deterministic reporting and is empty iff
// the two sets agree.
func (m *Manifest) CheckCompleteness(variantDirs map[string]bool) []error {
	var errsOut []error

	mainKeys := sortedKeys(m.Main)
	for _, k := range mainKeys {
		if !variantDirs[k] {
			errsOut = append(errsOut, errs.New(errs.InvariantViolation,
				"manifest.main references variant %q with no directory under variants/", k))
		}
	}

	dirNames := make([]string, 0, len(variantDirs))
	for d := range variantDirs {
		dirNames = append(dirNames, d)
	}
	sort.Strings(dirNames)
	for _, d := range dirNames {
		if _, ok := m.Main[d]; !ok {
			errsOut = append(errsOut, errs.New(errs.InvariantViolation,
				"variants/%s/ has no entry in manifest.main", d))
		}
	}
	return errsOut
}

// HasVariant reports whether variant (case-insensitively) is a key of
// main.
func (m *Manifest) HasVariant(variant string) bool {
	_, ok := m.Main[pathutil.ToLower(variant)]
	return ok
}

// SetVariant sets main[lower(variant)] = mainPath, replacing any
// previous value.
func (m *Manifest) SetVariant(variant, mainPath string) {
	if m.Main == nil {
		m.Main = map[string]string{}
	}
	m.Main[pathutil.ToLower(variant)] = mainPath
}

// RemoveVariant deletes the main entry for variant, if present.
func (m *Manifest) RemoveVariant(variant string) {
	delete(m.Main, pathutil.ToLower(variant))
}

// WouldChange reports whether setting variant's main to newMain would
// change the currently stored value (including the case where the
// variant is not yet present).
func (m *Manifest) WouldChange(variant, newMain string) bool {
	current, ok := m.Main[pathutil.ToLower(variant)]
	return !ok || current != newMain
}

func splitMajor(version string) (major, rest string, ok bool) {
	i := strings.IndexByte(version, '.')
	if i < 0 {
		return "", "", false
	}
	return version[:i], version[i+1:], true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer for diagnostic logging.
func (m *Manifest) String() string {
	return fmt.Sprintf("%s@%s (%d variant(s))", m.Name, m.Version, len(m.Main))
}
