package pkgfile

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgxpkg/lgx/errs"
	"github.com/lgxpkg/lgx/internal/gzframe"
	"github.com/lgxpkg/lgx/internal/ustar"
	"github.com/lgxpkg/lgx/manifest"
)

func strPtr(s string) *string { return &s }

func TestCreateThenLoad(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")

	_, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)

	loaded, err := Load(pkgPath)
	require.NoError(t, err)
	assert.Equal(t, "mypkg", loaded.Manifest.Name)
	assert.Equal(t, "0.0.1", loaded.Manifest.Version)
	assert.Empty(t, loaded.Manifest.Main)

	var sawVariantsDir bool
	for _, e := range loaded.Entries {
		if e.Path == "variants" && e.IsDir {
			sawVariantsDir = true
		}
	}
	assert.True(t, sawVariantsDir)
}

func TestAddVariantFromFile(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	libPath := filepath.Join(dir, "lib.so")
	require.NoError(t, os.WriteFile(libPath, []byte("hello"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)

	require.NoError(t, pkg.AddVariant("Linux-AMD64", libPath, nil))
	require.NoError(t, pkg.Save(pkgPath))

	assert.Equal(t, map[string]string{"linux-amd64": "lib.so"}, pkg.Manifest.Main)

	loaded, err := Load(pkgPath)
	require.NoError(t, err)
	found := false
	for _, e := range loaded.Entries {
		if e.Path == "variants/linux-amd64/lib.so" {
			found = true
			assert.Equal(t, "hello", string(e.Data))
		}
	}
	assert.True(t, found)
}

func TestAddVariantTotalReplacement(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	libPath := filepath.Join(dir, "lib.so")
	newPath := filepath.Join(dir, "new.so")
	require.NoError(t, os.WriteFile(libPath, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte("new"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	require.NoError(t, pkg.AddVariant("linux-amd64", libPath, nil))
	require.NoError(t, pkg.AddVariant("linux-amd64", newPath, nil))

	assert.Equal(t, map[string]string{"linux-amd64": "new.so"}, pkg.Manifest.Main)

	var paths []string
	for _, e := range pkg.Entries {
		if !e.IsDir {
			paths = append(paths, e.Path)
		}
	}
	assert.Contains(t, paths, "variants/linux-amd64/new.so")
	assert.NotContains(t, paths, "variants/linux-amd64/lib.so")
}

func TestAddVariantDirectoryRequiresMain(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	srcDir := filepath.Join(dir, "dist")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "index.html"), []byte("<html></html>"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)

	err = pkg.AddVariant("web", srcDir, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUsage)
}

func TestAddVariantFromDirectoryWalksTree(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	srcDir := filepath.Join(dir, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "index.html"), []byte("root"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "assets", "style.css"), []byte("body{}"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	require.NoError(t, pkg.AddVariant("web", srcDir, strPtr("index.html")))

	byPath := map[string]string{}
	for _, e := range pkg.Entries {
		if !e.IsDir {
			byPath[e.Path] = string(e.Data)
		}
	}
	assert.Equal(t, "root", byPath["variants/web/index.html"])
	assert.Equal(t, "body{}", byPath["variants/web/assets/style.css"])
	assert.Equal(t, "index.html", pkg.Manifest.Main["web"])
}

func TestRemoveVariant(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	libPath := filepath.Join(dir, "lib.so")
	require.NoError(t, os.WriteFile(libPath, []byte("hello"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	require.NoError(t, pkg.AddVariant("linux-amd64", libPath, nil))
	require.NoError(t, pkg.RemoveVariant("Linux-AMD64"))

	assert.False(t, pkg.HasVariant("linux-amd64"))
	for _, e := range pkg.Entries {
		assert.NotContains(t, e.Path, "variants/linux-amd64")
	}
}

func TestRemoveVariantMissingFails(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)

	err = pkg.RemoveVariant("nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUsage)
}

func TestExtractVariantRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	srcDir := filepath.Join(dir, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "index.html"), []byte("root"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "assets", "style.css"), []byte("body{}"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	require.NoError(t, pkg.AddVariant("web", srcDir, strPtr("index.html")))

	outDir := filepath.Join(dir, "out")
	require.NoError(t, pkg.ExtractVariant("web", outDir))

	got, err := os.ReadFile(filepath.Join(outDir, "web", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "root", string(got))

	got2, err := os.ReadFile(filepath.Join(outDir, "web", "assets", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(got2))
}

func TestWouldMainChange(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	libPath := filepath.Join(dir, "lib.so")
	require.NoError(t, os.WriteFile(libPath, []byte("hello"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	require.NoError(t, pkg.AddVariant("linux-amd64", libPath, nil))

	assert.False(t, pkg.WouldMainChange("linux-amd64", "lib.so"))
	assert.True(t, pkg.WouldMainChange("linux-amd64", "other.so"))
}

func TestSaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	libPath := filepath.Join(dir, "lib.so")
	require.NoError(t, os.WriteFile(libPath, []byte("hello"), 0o644))

	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	require.NoError(t, pkg.AddVariant("linux-amd64", libPath, nil))

	out1, err := pkg.Bytes()
	require.NoError(t, err)
	out2, err := pkg.Bytes()
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestContentDigestStableUnderReorder(t *testing.T) {
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	pkg, err := Create(pkgPath, "MyPkg")
	require.NoError(t, err)
	pkg.Entries = append(pkg.Entries,
		ustar.Entry{Path: "a.txt", Data: []byte("A")},
		ustar.Entry{Path: "b.txt", Data: []byte("B")},
	)
	d1, err := pkg.ContentDigest()
	require.NoError(t, err)

	pkg.Entries[len(pkg.Entries)-1], pkg.Entries[len(pkg.Entries)-2] =
		pkg.Entries[len(pkg.Entries)-2], pkg.Entries[len(pkg.Entries)-1]
	d2, err := pkg.ContentDigest()
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestLoadBytesRejectsTruncatedGzip(t *testing.T) {
	_, err := LoadBytes([]byte{0x1f, 0x8b}) // not even a complete gzip header
	require.Error(t, err)
}

func TestLoadToleratesCraftedTraversalArchive(t *testing.T) {
	// load must succeed even though the entry is not a safe path; it is
	// verify's job to reject it, not load's. The package's own encoder
	// refuses such a path, so the archive is written with archive/tar.
	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "x.lgx")
	manifestData, err := manifest.Default("MyPkg").ToJSON()
	require.NoError(t, err)

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, f := range []struct {
		name string
		data []byte
	}{
		{"manifest.json", manifestData},
		{"variants/../etc/x", []byte("x")},
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.name,
			Mode:     0o644,
			Size:     int64(len(f.data)),
			ModTime:  time.Unix(0, 0),
			Format:   tar.FormatUSTAR,
		}))
		_, err := tw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	compressed, err := gzframe.Compress(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pkgPath, compressed, 0o644))

	loaded, err := Load(pkgPath)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	var sawTraversal bool
	for _, e := range loaded.Entries {
		if e.Path == "variants/../etc/x" {
			sawTraversal = true
		}
	}
	assert.True(t, sawTraversal)
}
