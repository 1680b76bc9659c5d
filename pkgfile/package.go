// Package pkgfile implements the Package aggregate: a Manifest plus the
// list of tar entries making up an LGX archive, and the mutation API
// (create, load, save, add/remove variant, extract) that keeps the two
// in sync.
package pkgfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lgxpkg/lgx/errs"
	"github.com/lgxpkg/lgx/internal/atomicfile"
	"github.com/lgxpkg/lgx/internal/gzframe"
	"github.com/lgxpkg/lgx/internal/pathutil"
	"github.com/lgxpkg/lgx/internal/ustar"
	"github.com/lgxpkg/lgx/lasterr"
	"github.com/lgxpkg/lgx/manifest"
)

const variantsRoot = "variants"

// allowedRootComponents is the fixed set of names a root-level archive
// entry's first path component may belong to.
var allowedRootComponents = map[string]bool{
	"manifest.json": true,
	"manifest.cose": true,
	"variants":      true,
	"docs":          true,
	"licenses":      true,
}

// Package is the in-memory aggregate of a manifest and its archive
// entries. manifest.json is never held in Entries; it is materialized
// from Manifest at Save time. The zero value is not usable; construct
// with Create or Load.
type Package struct {
	Manifest *manifest.Manifest
	Entries  []ustar.Entry
}

func fail(kind errs.Kind, format string, args ...any) error {
	e := errs.New(kind, format, args...)
	lasterr.Set(e)
	return e
}

func failWrap(kind errs.Kind, err error, format string, args ...any) error {
	e := errs.Wrap(kind, err, format, args...)
	lasterr.Set(e)
	return e
}

// Create builds a new Package with default manifest metadata, a single
// empty variants/ directory entry, and immediately persists it to path.
func Create(path, name string) (*Package, error) {
	p := &Package{
		Manifest: manifest.Default(name),
		Entries:  []ustar.Entry{{Path: variantsRoot, IsDir: true}},
	}
	if err := p.Save(path); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads path from disk and parses it into a Package. Load does not
// enforce the cross-invariants checked by verify.Verify: malformed
// archives can still be loaded for diagnostic purposes.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failWrap(errs.IO, err, "read %s", path)
	}
	return LoadBytes(data)
}

// LoadBytes parses an in-memory LGX archive. See Load.
func LoadBytes(data []byte) (*Package, error) {
	raw, err := gzframe.DecompressAll(data)
	if err != nil {
		return nil, err
	}
	entries, err := ustar.Decode(raw)
	if err != nil {
		return nil, err
	}

	var manifestData []byte
	var found bool
	kept := make([]ustar.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir && e.Path == "manifest.json" {
			manifestData = e.Data
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return nil, fail(errs.InvalidManifest, "archive has no manifest.json entry")
	}

	m, err := manifest.FromJSON(manifestData)
	if err != nil {
		lasterr.Set(err)
		return nil, err
	}

	return &Package{Manifest: m, Entries: kept}, nil
}

// Save emits the package to path: manifest.json, then every ancestor
// directory of each kept entry not already emitted, then the kept
// entries themselves, falling back to an empty variants/ directory if
// none was emitted. The encoder's own lexicographic sort is the final
// word on byte layout; this insertion order exists only so every file
// has directory entries for its full ancestor chain.
func (p *Package) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return failWrap(errs.IO, err, "write %s", path)
	}
	return nil
}

// Bytes serializes the package to its final compressed byte form
// without touching the filesystem.
func (p *Package) Bytes() ([]byte, error) {
	manifestData, err := p.Manifest.ToJSON()
	if err != nil {
		return nil, err
	}

	b := ustar.NewBuilder()
	if err := b.AddFile("manifest.json", manifestData); err != nil {
		return nil, err
	}

	emittedDirs := map[string]bool{}
	sawVariants := false

	for _, e := range p.Entries {
		for _, ancestor := range ancestorDirs(e.Path) {
			if emittedDirs[ancestor] {
				continue
			}
			emittedDirs[ancestor] = true
			if err := b.AddDir(ancestor); err != nil {
				return nil, err
			}
			if ancestor == variantsRoot {
				sawVariants = true
			}
		}
		if e.IsDir {
			if emittedDirs[e.Path] {
				continue
			}
			emittedDirs[e.Path] = true
			if err := b.AddDir(e.Path); err != nil {
				return nil, err
			}
			if e.Path == variantsRoot {
				sawVariants = true
			}
		} else {
			if err := b.AddFile(e.Path, e.Data); err != nil {
				return nil, err
			}
		}
	}

	if !sawVariants {
		if err := b.AddDir(variantsRoot); err != nil {
			return nil, err
		}
	}

	tarBytes, err := b.Finalize()
	if err != nil {
		return nil, err
	}
	return gzframe.Compress(tarBytes)
}

// ancestorDirs returns every proper ancestor directory path of p, in
// root-to-leaf order, e.g. "a/b/c" -> ["a", "a/b"].
func ancestorDirs(p string) []string {
	parts := pathutil.SplitPath(p)
	if len(parts) <= 1 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}

// AddVariant adds or total-replaces variant's contents from sourcePath.
// If sourcePath is a directory, mainOpt must be non-nil (UsageError
// otherwise); if it is a regular file, main defaults to its basename
// when mainOpt is nil. Every existing entry under variants/<variant>
// is removed before the new tree is inserted.
func (p *Package) AddVariant(variant, sourcePath string, mainOpt *string) error {
	variant = pathutil.ToLower(variant)

	info, err := os.Stat(sourcePath)
	if err != nil {
		return failWrap(errs.IO, err, "stat %s", sourcePath)
	}

	var resolvedMain string
	if info.IsDir() {
		if mainOpt == nil {
			return fail(errs.Usage, "--main is required when adding a variant from a directory")
		}
		resolvedMain = *mainOpt
	} else if mainOpt != nil {
		resolvedMain = *mainOpt
	} else {
		resolvedMain = filepath.Base(sourcePath)
	}
	resolvedMain, err = pathutil.ToNFC(resolvedMain)
	if err != nil {
		return err
	}

	if err := pathutil.ValidateArchivePath(resolvedMain); err != nil {
		return err
	}

	prefix := variantsRoot + "/" + variant
	p.removeUnder(prefix)

	newEntries := []ustar.Entry{{Path: prefix, IsDir: true}}
	if info.IsDir() {
		walked, err := walkDirectory(sourcePath, prefix)
		if err != nil {
			return err
		}
		newEntries = append(newEntries, walked...)
	} else {
		content, err := os.ReadFile(sourcePath)
		if err != nil {
			return failWrap(errs.IO, err, "read %s", sourcePath)
		}
		name, err := pathutil.ToNFC(filepath.Base(sourcePath))
		if err != nil {
			return err
		}
		newEntries = append(newEntries, ustar.Entry{Path: prefix + "/" + name, Data: content})
	}

	p.Entries = append(p.Entries, newEntries...)
	p.Manifest.SetVariant(variant, resolvedMain)
	return nil
}

// removeUnder drops every entry equal to prefix or nested under it.
func (p *Package) removeUnder(prefix string) {
	kept := make([]ustar.Entry, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Path == prefix || strings.HasPrefix(e.Path, prefix+"/") {
			continue
		}
		kept = append(kept, e)
	}
	p.Entries = kept
}

// walkDirectory lists dir's full tree (directories and regular files
// only) as an explicit work queue rather than recursion, producing
// archive entries rooted at archivePrefix. Symlinks, special files, and
// unreadable entries are silently skipped.
func walkDirectory(dir, archivePrefix string) ([]ustar.Entry, error) {
	var out []ustar.Entry
	queue := []string{""}

	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]

		fsDir := filepath.Join(dir, rel)
		children, err := os.ReadDir(fsDir)
		if err != nil {
			if rel != "" {
				// An unreadable subdirectory is skipped like any other
				// unreadable entry; only the source root must be readable.
				continue
			}
			return nil, failWrap(errs.IO, err, "read directory %s", fsDir)
		}

		for _, child := range children {
			childRel := child.Name()
			if rel != "" {
				childRel = rel + "/" + child.Name()
			}
			info, err := child.Info()
			if err != nil {
				continue
			}
			if info.Mode()&os.ModeSymlink != 0 || !(info.Mode().IsRegular() || info.IsDir()) {
				continue
			}

			archivePath, err := pathutil.ToNFC(archivePrefix + "/" + childRel)
			if err != nil {
				continue
			}

			if info.IsDir() {
				out = append(out, ustar.Entry{Path: archivePath, IsDir: true})
				queue = append(queue, childRel)
				continue
			}

			content, err := os.ReadFile(filepath.Join(dir, childRel))
			if err != nil {
				continue
			}
			out = append(out, ustar.Entry{Path: archivePath, Data: content})
		}
	}
	return out, nil
}

// RemoveVariant drops every entry under variants/<variant> and removes
// the manifest's main entry for it. Fails with UsageError if the
// variant does not exist.
func (p *Package) RemoveVariant(variant string) error {
	variant = pathutil.ToLower(variant)
	if !p.HasVariant(variant) {
		return fail(errs.Usage, "variant %q does not exist", variant)
	}
	p.removeUnder(variantsRoot + "/" + variant)
	p.Manifest.RemoveVariant(variant)
	return nil
}

// HasVariant reports whether variant exists, case-insensitively.
func (p *Package) HasVariant(variant string) bool {
	return p.Manifest.HasVariant(variant)
}

// Variants returns the lowercased, deduplicated set of variant names
// known to the manifest, sorted for deterministic output.
func (p *Package) Variants() []string {
	names := make(map[string]bool, len(p.Manifest.Main))
	for k := range p.Manifest.Main {
		names[pathutil.ToLower(k)] = true
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// WouldMainChange reports whether setting variant's main entry point to
// newMain would change its currently recorded value.
func (p *Package) WouldMainChange(variant, newMain string) bool {
	return p.Manifest.WouldChange(variant, newMain)
}

// ExtractVariant writes every entry under variants/<v>/ into
// outDir/<v>/, relative to that prefix. Load does not sanitize entry
// paths, so each entry's path is checked by the sanitizer before it is
// written and an unsafe path fails the extraction; no entry can escape
// outDir/<v>/.
func (p *Package) ExtractVariant(variant, outDir string) error {
	variant = pathutil.ToLower(variant)
	prefix := variantsRoot + "/" + variant
	dest := filepath.Join(outDir, variant)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return failWrap(errs.IO, err, "create %s", dest)
	}

	foundAny := false
	for _, e := range p.Entries {
		if e.Path != prefix && !strings.HasPrefix(e.Path, prefix+"/") {
			continue
		}
		if err := pathutil.ValidateArchivePath(e.Path); err != nil {
			lasterr.Set(err)
			return err
		}
		foundAny = true
		rel := strings.TrimPrefix(e.Path, prefix)
		rel = strings.TrimPrefix(rel, "/")
		target := filepath.Join(dest, rel)
		if e.IsDir {
			if rel == "" {
				continue
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return failWrap(errs.IO, err, "create %s", target)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return failWrap(errs.IO, err, "create %s", filepath.Dir(target))
		}
		if err := os.WriteFile(target, e.Data, 0o644); err != nil {
			return failWrap(errs.IO, err, "write %s", target)
		}
	}
	if !foundAny {
		return fail(errs.Usage, "variant %q has no entries in this archive", variant)
	}
	return nil
}

// ExtractAll extracts every variant known to the manifest.
func (p *Package) ExtractAll(outDir string) error {
	for _, v := range p.Variants() {
		if err := p.ExtractVariant(v, outDir); err != nil {
			return err
		}
	}
	return nil
}

// ContentDigest computes a SHA-256 over the sorted concatenation of
// "path\x00sha256(data)" for every kept regular-file entry. It is a
// diagnostic convenience only: no invariant depends on it.
func (p *Package) ContentDigest() (string, error) {
	type hashed struct {
		path string
		sum  string
	}
	entries := make([]hashed, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.IsDir {
			continue
		}
		sum := sha256.Sum256(e.Data)
		entries = append(entries, hashed{path: e.Path, sum: hex.EncodeToString(sum[:])})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%s", e.path, e.sum)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RootComponentsAllowed reports whether every root-level entry's first
// path component belongs to the fixed allow-list. Exported for use by
// the verifier.
func (p *Package) RootComponentsAllowed() []error {
	var out []error
	for _, e := range p.Entries {
		root := pathutil.RootComponent(e.Path)
		if !allowedRootComponents[root] {
			out = append(out, errs.New(errs.InvariantViolation,
				"entry %q has disallowed root component %q", e.Path, root))
		}
	}
	return out
}
