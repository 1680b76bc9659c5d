package ustar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgxpkg/lgx/errs"
)

func buildArchive(t *testing.T, files map[string]string, dirs []string) []byte {
	t.Helper()
	b := NewBuilder()
	for _, d := range dirs {
		require.NoError(t, b.AddDir(d))
	}
	for p, content := range files {
		require.NoError(t, b.AddFile(p, []byte(content)))
	}
	out, err := b.Finalize()
	require.NoError(t, err)
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"manifest.json":            `{"a":1}`,
		"variants/linux-amd64/lib.so": "hello",
	}, []string{"variants", "variants/linux-amd64"})

	entries, err := Decode(data)
	require.NoError(t, err)

	byPath := map[string]Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	require.Contains(t, byPath, "manifest.json")
	assert.Equal(t, `{"a":1}`, string(byPath["manifest.json"].Data))
	require.Contains(t, byPath, "variants/linux-amd64/lib.so")
	assert.Equal(t, "hello", string(byPath["variants/linux-amd64/lib.so"].Data))
	require.Contains(t, byPath, "variants")
	assert.True(t, byPath["variants"].IsDir)
}

func TestEncodeIsOrderIndependent(t *testing.T) {
	a := NewBuilder()
	require.NoError(t, a.AddFile("b.txt", []byte("B")))
	require.NoError(t, a.AddFile("a.txt", []byte("A")))
	require.NoError(t, a.AddDir("z"))
	outA, err := a.Finalize()
	require.NoError(t, err)

	b := NewBuilder()
	require.NoError(t, b.AddDir("z"))
	require.NoError(t, b.AddFile("a.txt", []byte("A")))
	require.NoError(t, b.AddFile("b.txt", []byte("B")))
	outB, err := b.Finalize()
	require.NoError(t, err)

	assert.Equal(t, outA, outB, "encoder output must not depend on insertion order")
}

func TestEncodeDeterministicAcrossRuns(t *testing.T) {
	files := map[string]string{"x": "contents"}
	out1 := buildArchive(t, files, nil)
	out2 := buildArchive(t, files, nil)
	assert.Equal(t, out1, out2)
}

func TestEncodeEndsWithTwoZeroBlocks(t *testing.T) {
	out := buildArchive(t, map[string]string{"a": "1"}, nil)
	require.True(t, len(out) >= blockSize*2)
	tail := out[len(out)-blockSize*2:]
	for _, b := range tail {
		assert.Equal(t, byte(0), b)
	}
}

func TestLongPathSplitsAtSlashBoundary(t *testing.T) {
	long := strings.Repeat("a", 90) + "/" + strings.Repeat("b", 90)
	b := NewBuilder()
	require.NoError(t, b.AddFile(long, []byte("data")))
	out, err := b.Finalize()
	require.NoError(t, err)

	entries, err := Decode(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, long, entries[0].Path)
}

func TestPathTooLongForUSTAR(t *testing.T) {
	// No '/' boundary exists that keeps the name component under 100
	// bytes, so no valid split exists.
	unsplittable := strings.Repeat("a", 300)
	b := NewBuilder()
	require.NoError(t, b.AddFile(unsplittable, []byte("x")))
	_, err := b.Finalize()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArchive)
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	out := buildArchive(t, map[string]string{"a": "1"}, nil)
	corrupt := append([]byte{}, out...)
	corrupt[0] ^= 0xFF
	_, err := Decode(corrupt)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArchive)
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	out := buildArchive(t, map[string]string{"a": "hello world"}, nil)
	truncated := out[:blockSize+4]
	_, err := Decode(truncated)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArchive)
}

func TestDecodeSkipsForbiddenTypeflagButStaysAligned(t *testing.T) {
	out := buildArchive(t, map[string]string{"after": "keepme"}, nil)

	// Build a symlink header manually and prepend it before the real
	// entry to verify the decoder skips it but still finds what follows.
	symHeader := make([]byte, blockSize)
	putString(symHeader[offName:offName+szName], "a-symlink")
	putOctal(symHeader[offMode:offMode+szMode], 0o777)
	putOctal(symHeader[offUID:offUID+szUID], 0)
	putOctal(symHeader[offGID:offGID+szGID], 0)
	putOctal(symHeader[offSize:offSize+szSize], 0)
	putOctal(symHeader[offMtime:offMtime+szMtime], 0)
	symHeader[offTypeflag] = '2' // symlink
	putString(symHeader[offLinkname:offLinkname+szLinkname], "target")
	putString(symHeader[offMagic:offMagic+szMagic], magic)
	putString(symHeader[offVersion:offVersion+szVersion], version)
	for i := offChksum; i < offChksum+szChksum; i++ {
		symHeader[i] = ' '
	}
	var sum int64
	for _, c := range symHeader {
		sum += int64(c)
	}
	putChecksum(symHeader[offChksum:offChksum+szChksum], sum)

	combined := append(append([]byte{}, symHeader...), out...)

	entries, err := Decode(combined)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].Path)
	assert.Equal(t, "keepme", string(entries[0].Data))
}

func TestReadFileNormalizesSlashes(t *testing.T) {
	out := buildArchive(t, map[string]string{"dir/file.txt": "payload"}, nil)
	data, ok, err := ReadFile(out, "/dir/file.txt/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(data))
}

func TestIsValidTar(t *testing.T) {
	out := buildArchive(t, map[string]string{"a": "1"}, nil)
	assert.True(t, IsValidTar(out))
	assert.False(t, IsValidTar([]byte("not a tar file at all, too short")))
}
