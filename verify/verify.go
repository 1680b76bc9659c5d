// Package verify implements the cross-layer consistency checks that
// load deliberately skips: manifest intrinsics, root-component
// allow-listing, the variants/ directory shape, path sanitization of
// every entry, and the manifest/variants-directory completeness
// bijection. Verify never short-circuits; it accumulates every failure
// it finds into a Report.
package verify

import (
	"strings"

	"github.com/lgxpkg/lgx/errs"
	"github.com/lgxpkg/lgx/internal/pathutil"
	"github.com/lgxpkg/lgx/lasterr"
	"github.com/lgxpkg/lgx/pkgfile"
)

const variantsRoot = "variants"

// Report is the result of Verify: a (possibly empty) accumulated list
// of failures plus warnings, reserved for forward compatibility and
// always empty in this revision.
type Report struct {
	Errors   []error
	Warnings []string
}

// Valid reports whether the package passed every check.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Verify loads path and runs every cross-invariant check from spec.md
// §3 and §4.G against it, accumulating all failures rather than
// stopping at the first. A load failure (bad gzip, bad tar, missing or
// unparseable manifest) is returned directly as an error, since there
// is no package to report on.
func Verify(path string) (*Report, error) {
	pkg, err := pkgfile.Load(path)
	if err != nil {
		return nil, err
	}
	return VerifyPackage(pkg), nil
}

// VerifyPackage runs the same checks as Verify against an already
// loaded Package.
func VerifyPackage(pkg *pkgfile.Package) *Report {
	report := &Report{}

	if err := pkg.Manifest.Validate(); err != nil {
		report.Errors = append(report.Errors, err)
	}

	report.Errors = append(report.Errors, pkg.RootComponentsAllowed()...)

	var sawVariantsDir bool
	variantDirs := map[string]bool{}
	regularUnderVariantsRoot := false

	for _, e := range pkg.Entries {
		if e.Path == variantsRoot && e.IsDir {
			sawVariantsDir = true
		}

		if err := pathutil.ValidateArchivePath(e.Path); err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}

		if strings.HasPrefix(e.Path, variantsRoot+"/") {
			rest := strings.TrimPrefix(e.Path, variantsRoot+"/")
			parts := pathutil.SplitPath(rest)
			if len(parts) == 0 {
				continue
			}
			if len(parts) == 1 {
				if e.IsDir {
					variantDirs[pathutil.ToLower(parts[0])] = true
				} else {
					regularUnderVariantsRoot = true
				}
			}
		}
	}

	// manifest.json itself is never in Entries (pkgfile.Load parses it
	// out); its presence is implied by a successful load, which is a
	// prerequisite for reaching this point at all.
	if !sawVariantsDir {
		report.Errors = append(report.Errors, errs.New(errs.InvariantViolation, "archive has no variants/ directory entry"))
	}
	if regularUnderVariantsRoot {
		report.Errors = append(report.Errors, errs.New(errs.InvariantViolation, "a regular file sits directly under variants/"))
	}

	report.Errors = append(report.Errors, pkg.Manifest.CheckCompleteness(variantDirs)...)

	for variant, mainPath := range pkg.Manifest.Main {
		want := variantsRoot + "/" + variant + "/" + mainPath
		if !hasRegularFile(pkg, want) {
			report.Errors = append(report.Errors, errs.New(errs.InvariantViolation,
				"manifest.main[%q] points at %q, which is not a regular file in the archive", variant, want))
		}
	}

	if !report.Valid() {
		lasterr.Set(report.Errors[len(report.Errors)-1])
	}
	return report
}

func hasRegularFile(pkg *pkgfile.Package, path string) bool {
	for _, e := range pkg.Entries {
		if !e.IsDir && e.Path == path {
			return true
		}
	}
	return false
}
