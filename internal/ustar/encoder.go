package ustar

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/lgxpkg/lgx/errs"
	"github.com/lgxpkg/lgx/internal/pathutil"
)

// Entry is a single archive member, as produced by Decode or accumulated
// by a Builder before Finalize.
type Entry struct {
	Path  string
	IsDir bool
	Data  []byte
}

// Builder accumulates entries and emits a deterministic USTAR archive via
// Finalize. The caller's insertion order is irrelevant: Finalize sorts
// entries by their canonicalized path bytes immediately before emission,
// which is the sole determinism anchor for the archive layout.
type Builder struct {
	entries []Entry
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddFile queues a regular file entry at path with the given contents.
func (b *Builder) AddFile(path string, data []byte) error {
	if err := pathutil.ValidateArchivePath(path); err != nil {
		return err
	}
	b.entries = append(b.entries, Entry{Path: path, IsDir: false, Data: data})
	return nil
}

// AddDir queues a directory entry at path.
func (b *Builder) AddDir(path string) error {
	if err := pathutil.ValidateArchivePath(path); err != nil {
		return err
	}
	b.entries = append(b.entries, Entry{Path: path, IsDir: true})
	return nil
}

// Finalize sorts the queued entries by canonicalized path and emits the
// USTAR byte stream: one header + data blocks per entry, terminated by
// two consecutive all-zero 512-byte blocks.
func (b *Builder) Finalize() ([]byte, error) {
	canon := make([]string, len(b.entries))
	for i, e := range b.entries {
		canon[i] = canonicalPath(e)
	}
	order := make([]int, len(b.entries))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return canon[order[i]] < canon[order[j]]
	})

	var buf bytes.Buffer
	for _, idx := range order {
		e := b.entries[idx]
		if err := writeEntry(&buf, e, canon[idx]); err != nil {
			return nil, err
		}
	}
	// End-of-archive marker: two consecutive zero blocks.
	buf.Write(make([]byte, blockSize*2))
	return buf.Bytes(), nil
}

// canonicalPath returns the on-disk encoded form of an entry's path: a
// trailing slash is added for directories and stripped for files, after
// trimming any leading slashes. This is both the sort key and the value
// written into the name/prefix fields.
func canonicalPath(e Entry) string {
	p := e.Path
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if e.IsDir {
		if len(p) == 0 || p[len(p)-1] != '/' {
			p += "/"
		}
	} else {
		for len(p) > 0 && p[len(p)-1] == '/' {
			p = p[:len(p)-1]
		}
	}
	return p
}

func writeEntry(buf *bytes.Buffer, e Entry, encodedPath string) error {
	prefix, name, ok := splitUSTARPath(encodedPath)
	if !ok {
		return errs.New(errs.InvalidArchive, "path too long for USTAR: %q", e.Path)
	}

	var size int64
	var typeflag byte
	var mode int64
	if e.IsDir {
		typeflag = typeDirectory
		mode = modeDir
	} else {
		typeflag = typeRegular
		mode = modeFile
		size = int64(len(e.Data))
	}

	header := make([]byte, blockSize)
	putString(header[offName:offName+szName], name)
	putOctal(header[offMode:offMode+szMode], mode)
	putOctal(header[offUID:offUID+szUID], 0)
	putOctal(header[offGID:offGID+szGID], 0)
	if err := putOctalChecked(header[offSize:offSize+szSize], size); err != nil {
		return err
	}
	putOctal(header[offMtime:offMtime+szMtime], 0)
	header[offTypeflag] = typeflag
	putString(header[offMagic:offMagic+szMagic], magic)
	putString(header[offVersion:offVersion+szVersion], version)
	putOctal(header[offDevmajor:offDevmajor+szDevmajor], 0)
	putOctal(header[offDevminor:offDevminor+szDevminor], 0)
	putString(header[offPrefix:offPrefix+szPrefix], prefix)

	// Checksum: sum of all 512 header bytes with the checksum field
	// treated as eight ASCII spaces, written back as six octal digits,
	// NUL, space.
	for i := offChksum; i < offChksum+szChksum; i++ {
		header[i] = ' '
	}
	var sum int64
	for _, c := range header {
		sum += int64(c)
	}
	putChecksum(header[offChksum:offChksum+szChksum], sum)

	buf.Write(header)
	if !e.IsDir {
		buf.Write(e.Data)
		if pad := blockSize - (len(e.Data) % blockSize); pad != blockSize {
			buf.Write(make([]byte, pad))
		}
	}
	return nil
}

// splitUSTARPath encodes p into the USTAR name/prefix pair. If p fits
// entirely within 100 bytes it is placed in name with an empty prefix.
// Otherwise p is split at a '/' boundary such that prefix <= 155 bytes
// and name <= 100 bytes; the rightmost such boundary is chosen, which
// keeps the name as short and the prefix as long as the limits allow. ok
// is false if no such split exists.
func splitUSTARPath(p string) (prefix, name string, ok bool) {
	if len(p) <= szName {
		return "", p, true
	}
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != '/' {
			continue
		}
		prefixLen := i
		nameLen := len(p) - i - 1
		if nameLen <= szName && prefixLen <= szPrefix {
			return p[:i], p[i+1:], true
		}
	}
	return "", "", false
}

func putString(field []byte, s string) {
	n := copy(field, s)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
}

func putOctal(field []byte, v int64) {
	s := fmt.Sprintf("%0*o", len(field)-1, v)
	copy(field, s)
	field[len(field)-1] = 0
}

func putOctalChecked(field []byte, v int64) error {
	maxVal := int64(1)
	for i := 0; i < len(field)-1; i++ {
		maxVal *= 8
	}
	if v < 0 || v >= maxVal {
		return errs.New(errs.InvalidArchive, "value %d does not fit in %d-byte octal field", v, len(field))
	}
	putOctal(field, v)
	return nil
}

func putChecksum(field []byte, sum int64) {
	s := fmt.Sprintf("%06o", sum)
	copy(field, s)
	field[6] = 0
	field[7] = ' '
}
