package ustar

import (
	"strconv"
	"strings"

	"github.com/lgxpkg/lgx/errs"
)

// Decode parses a 512-aligned USTAR byte buffer into a slice of Entry
// values. Non-regular, non-directory members (symlinks, hardlinks,
// device/block/fifo nodes) are silently skipped: their data blocks are
// still consumed correctly so that parsing of subsequent headers stays
// aligned, but no Entry is produced for them. Directory paths are
// returned without the trailing slash the encoder writes for them.
//
// The end of the archive is normally marked by two consecutive all-zero
// blocks. A single trailing zero block is also accepted, and a single
// zero block followed by further non-zero headers is tolerated by
// skipping it and continuing to parse — behavior observed in the source
// format this decoder was modeled on; see DESIGN.md for the rationale.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	pos := 0
	for pos < len(data) {
		if pos+blockSize > len(data) {
			return nil, errs.New(errs.InvalidArchive, "truncated header at offset %d", pos)
		}
		block := data[pos : pos+blockSize]
		if isZeroBlock(block) {
			next := pos + blockSize
			if next >= len(data) || isZeroBlock(data[next:min(next+blockSize, len(data))]) {
				// Normal end of archive: either a lone trailing zero
				// block, or the standard double zero-block terminator.
				return entries, nil
			}
			// A single zero block followed by live data; skip and
			// keep scanning.
			pos = next
			continue
		}

		if err := verifyChecksum(block, pos); err != nil {
			return nil, err
		}

		name := getString(block[offName : offName+szName])
		prefix := getString(block[offPrefix : offPrefix+szPrefix])
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		typeflag := block[offTypeflag]
		size := getOctal(block[offSize : offSize+szSize])

		dataStart := int64(pos + blockSize)
		dataBlocks := (size + blockSize - 1) / blockSize
		dataEnd := dataStart + dataBlocks*blockSize
		if size > 0 && dataEnd > int64(len(data)) {
			return nil, errs.New(errs.InvalidArchive, "incomplete file data for %q", path)
		}

		switch typeflag {
		case typeDirectory:
			entries = append(entries, Entry{Path: strings.TrimRight(path, "/"), IsDir: true})
		case typeRegular, 0:
			fileData := make([]byte, size)
			copy(fileData, data[dataStart:dataStart+size])
			entries = append(entries, Entry{Path: path, IsDir: false, Data: fileData})
		default:
			// Forbidden type: skip silently, blocks still consumed.
		}

		pos = int(dataEnd)
	}
	return entries, nil
}

// ReadFile scans tar for a regular file entry matching path (after
// stripping leading/trailing '/' from both the search path and each
// entry's path) and returns its bytes.
func ReadFile(data []byte, path string) ([]byte, bool, error) {
	entries, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	want := strings.Trim(path, "/")
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if strings.Trim(e.Path, "/") == want {
			return e.Data, true, nil
		}
	}
	return nil, false, nil
}

// IsValidTar is an advisory probe: it checks the first header's checksum
// and the "ustar" magic at offset 257. It is never invoked
// during correctness-critical decode.
func IsValidTar(data []byte) bool {
	if len(data) < blockSize {
		return false
	}
	block := data[:blockSize]
	if isZeroBlock(block) {
		return false
	}
	if err := verifyChecksum(block, 0); err != nil {
		return false
	}
	return string(block[offMagic:offMagic+5]) == "ustar"
}

func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

func verifyChecksum(block []byte, offset int) error {
	stored := getOctal(block[offChksum : offChksum+szChksum])
	var sum int64
	for i, c := range block {
		if i >= offChksum && i < offChksum+szChksum {
			sum += int64(' ')
			continue
		}
		sum += int64(c)
	}
	if sum != stored {
		return errs.New(errs.InvalidArchive, "invalid checksum at offset %d", offset)
	}
	return nil
}

// getString reads a NUL-terminated string from a fixed-width field.
func getString(field []byte) string {
	if i := indexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// getOctal parses a fixed-width field leniently: leading NULs or spaces
// are permitted, and parsing stops at the first non-octal digit.
func getOctal(field []byte) int64 {
	i := 0
	for i < len(field) && (field[i] == 0 || field[i] == ' ') {
		i++
	}
	j := i
	for j < len(field) && field[j] >= '0' && field[j] <= '7' {
		j++
	}
	if j == i {
		return 0
	}
	v, err := strconv.ParseInt(string(field[i:j]), 8, 64)
	if err != nil {
		return 0
	}
	return v
}
