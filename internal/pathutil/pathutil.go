// Package pathutil implements the LGX path sanitizer: NFC normalization,
// full Unicode case folding, and the archive-path validation that every
// path crossing the tar/manifest boundary must pass before it is trusted
// anywhere else in the core.
package pathutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/lgxpkg/lgx/errs"
)

var foldCaser = cases.Fold()

// ToNFC applies Unicode Normalization Form C to s. It fails only when s
// is not valid UTF-8.
func ToNFC(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", errs.New(errs.InvalidPath, "input is not valid UTF-8")
	}
	return norm.NFC.String(s), nil
}

// IsNFC reports whether s is already in Normalization Form C.
func IsNFC(s string) bool {
	return norm.NFC.IsNormalString(s)
}

// ToLower applies full Unicode case folding, used for package names and
// variant keys. It is idempotent (ToLower(ToLower(s)) == ToLower(s)) and
// folds locale quirks such as the German sharp-s the way default Unicode
// case folding does, rather than a plain ASCII lowercasing, so some
// already-lowercase input still changes ("straße" becomes "strasse").
func ToLower(s string) string {
	return foldCaser.String(s)
}

// ValidateArchivePath checks that p is a well-formed archive-relative
// path: non-empty, free of backslashes, not absolute under either POSIX
// or Windows drive conventions, free of ".." components after splitting
// on "/", and already in NFC.
func ValidateArchivePath(p string) error {
	if p == "" {
		return errs.New(errs.InvalidPath, "path is empty")
	}
	if strings.Contains(p, "\\") {
		return errs.New(errs.InvalidPath, "path %q contains a backslash", p)
	}
	if strings.HasPrefix(p, "/") {
		return errs.New(errs.InvalidPath, "path %q is absolute", p)
	}
	if isWindowsDriveAbsolute(p) {
		return errs.New(errs.InvalidPath, "path %q is absolute", p)
	}
	for _, seg := range SplitPath(p) {
		if seg == ".." {
			return errs.New(errs.InvalidPath, "path %q contains a '..' component", p)
		}
	}
	if !IsNFC(p) {
		return errs.New(errs.InvalidPath, "path %q is not in NFC normal form", p)
	}
	return nil
}

// isWindowsDriveAbsolute reports whether p starts with a Windows drive
// letter followed by ':' and a path separator, e.g. "C:\x" or "C:/x".
// Archive paths use '/' exclusively, but a drive prefix is rejected
// regardless of which separator follows it.
func isWindowsDriveAbsolute(p string) bool {
	if len(p) < 3 {
		return false
	}
	c := p[0]
	isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return isLetter && p[1] == ':' && (p[2] == '/' || p[2] == '\\')
}

// SplitPath splits p on "/", dropping empty and "." components.
func SplitPath(p string) []string {
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" || seg == "." {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// RootComponent returns the first element of SplitPath(p), or "" if p has
// no non-empty, non-"." components.
func RootComponent(p string) string {
	segs := SplitPath(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

// Join joins base and rel with a single "/", normalizing away redundant
// separators. "/" is the sole separator in archive paths.
func Join(base, rel string) string {
	segs := append(SplitPath(base), SplitPath(rel)...)
	return strings.Join(segs, "/")
}

// Basename returns the last element of p.
func Basename(p string) string {
	segs := SplitPath(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Dirname returns all but the last element of p, joined with "/". It
// returns "" when p has zero or one component.
func Dirname(p string) string {
	segs := SplitPath(p)
	if len(segs) <= 1 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], "/")
}
