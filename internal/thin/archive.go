// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type (
	// entry is one regular file member of an archive.
	entry struct {
		name    string
		size    int64
		mode    fs.FileMode
		modTime time.Time
	}

	// archiveWriter is the encoding specific part of a bundle.
	archiveWriter interface {
		add(e entry, r io.Reader) error
		Close() error
	}

	tarWriter struct {
		tw   *tar.Writer
		comp io.WriteCloser
	}

	zipWriter struct {
		zw *zip.Writer
	}

	// bundleWriter lays out tops, markers and the launcher inside an
	// archive. Each member name is written at most once.
	bundleWriter struct {
		w        archiveWriter
		env      *Env
		seen     map[string]struct{}
		checksum hash.Hash
		absonly  bool
		now      time.Time
	}
)

func newArchiveWriter(w io.Writer, c Compression) (archiveWriter, error) {
	switch c {
	case CompressionZip:
		return &zipWriter{zw: zip.NewWriter(w)}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return &tarWriter{tw: tar.NewWriter(enc), comp: enc}, nil
	default:
		gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("create gzip writer: %w", err)
		}
		return &tarWriter{tw: tar.NewWriter(gz), comp: gz}, nil
	}
}

func (t *tarWriter) add(e entry, r io.Reader) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     e.name,
		Size:     e.size,
		Mode:     int64(e.mode.Perm()),
		ModTime:  e.modTime,
		Format:   tar.FormatPAX,
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", e.name, err)
	}
	if _, err := io.CopyN(t.tw, r, e.size); err != nil {
		return fmt.Errorf("write %s: %w", e.name, err)
	}
	return nil
}

func (t *tarWriter) Close() error {
	if err := t.tw.Close(); err != nil {
		_ = t.comp.Close() // Tar trailer already failed; report that error
		return fmt.Errorf("close tar stream: %w", err)
	}
	if err := t.comp.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}
	return nil
}

func (z *zipWriter) add(e entry, r io.Reader) error {
	fh := &zip.FileHeader{
		Name:     e.name,
		Method:   zip.Deflate,
		Modified: e.modTime,
	}
	fh.SetMode(e.mode.Perm())
	w, err := z.zw.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("write header %s: %w", e.name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write %s: %w", e.name, err)
	}
	return nil
}

func (z *zipWriter) Close() error {
	if err := z.zw.Close(); err != nil {
		return fmt.Errorf("close zip stream: %w", err)
	}
	return nil
}

func newBundleWriter(env *Env, w archiveWriter, withChecksum, absonly bool, now time.Time) *bundleWriter {
	b := &bundleWriter{
		w:       w,
		env:     env,
		seen:    make(map[string]struct{}),
		absonly: absonly,
		now:     now,
	}
	if withChecksum {
		b.checksum = sha256.New()
	}
	return b
}

// Members returns the number of members written so far.
func (b *bundleWriter) Members() int { return len(b.seen) }

// CodeChecksum is the hex sha256 over every bundled .py file, in archive order.
func (b *bundleWriter) CodeChecksum() string {
	if b.checksum == nil {
		return ""
	}
	return hex.EncodeToString(b.checksum.Sum(nil))
}

// addBytes writes an in-memory member.
func (b *bundleWriter) addBytes(name string, data []byte, mode fs.FileMode) error {
	if !b.claim(name) {
		return nil
	}
	return b.w.add(entry{name: name, size: int64(len(data)), mode: mode, modTime: b.now},
		bytes.NewReader(data))
}

func (b *bundleWriter) claim(name string) bool {
	if _, dup := b.seen[name]; dup {
		b.env.Logger().Debug("Archive member already written, skipping", "member", name)
		return false
	}
	b.seen[name] = struct{}{}
	return true
}

// addTop copies one top into the archive under prefix. Directory tops keep
// their base name (prefix/salt/...), file tops land directly under prefix.
func (b *bundleWriter) addTop(prefix, top string) error {
	if !filepath.IsAbs(top) && b.absonly {
		b.env.Logger().Debug("Skipping relative top", "top", top)
		return nil
	}

	if egg, inner, ok := splitEgg(top); ok {
		return b.addEggTop(prefix, egg, inner)
	}

	info, err := os.Stat(top)
	if err != nil {
		return fmt.Errorf("stat top %s: %w", top, err)
	}
	base := filepath.Base(top)
	if !info.IsDir() {
		return b.addFile(path.Join(prefix, base), top, info)
	}
	return b.addDir(path.Join(prefix, base), top, map[string]struct{}{})
}

// addDir walks dir following symlinks. visited holds resolved directories
// to stop link cycles.
func (b *bundleWriter) addDir(arcDir, dir string, visited map[string]struct{}) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	if _, loop := visited[resolved]; loop {
		return nil
	}
	visited[resolved] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, de := range entries {
		name := de.Name()
		full := filepath.Join(dir, name)
		info, statErr := os.Stat(full)
		if statErr != nil {
			b.env.Logger().Debug("Skipping unreadable entry", "path", full, "error", statErr)
			continue
		}
		if info.IsDir() {
			if name == "__pycache__" {
				continue
			}
			if err := b.addDir(path.Join(arcDir, name), full, visited); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() || isBytecode(name) {
			continue
		}
		if err := b.addFile(path.Join(arcDir, name), full, info); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundleWriter) addFile(name, src string, info fs.FileInfo) error {
	if !b.claim(name) {
		return nil
	}
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	return b.w.add(entry{name: name, size: info.Size(), mode: info.Mode(), modTime: info.ModTime()}, b.tee(name, f))
}

// tee feeds .py sources into the code checksum while they are copied.
func (b *bundleWriter) tee(name string, r io.Reader) io.Reader {
	if b.checksum == nil || !strings.HasSuffix(name, ".py") {
		return r
	}
	return io.TeeReader(r, b.checksum)
}

// addEggTop copies inner (a package dir or module inside a zipped egg).
func (b *bundleWriter) addEggTop(prefix, egg, inner string) error {
	zr, err := zip.OpenReader(egg)
	if err != nil {
		return fmt.Errorf("open egg %s: %w", egg, err)
	}
	defer func() { _ = zr.Close() }() // Read-only archive; close error non-critical

	parent := path.Dir(inner)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || (f.Name != inner && !strings.HasPrefix(f.Name, inner+"/")) {
			continue
		}
		if isBytecode(f.Name) || strings.Contains(f.Name, "/__pycache__/") {
			continue
		}
		rel := f.Name
		if parent != "." {
			rel = strings.TrimPrefix(f.Name, parent+"/")
		}
		name := path.Join(prefix, rel)
		if !b.claim(name) {
			continue
		}
		if err := b.copyEggMember(name, f); err != nil {
			return err
		}
	}
	return nil
}

func (b *bundleWriter) copyEggMember(name string, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open egg member %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }() // Read-only stream; close error non-critical

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	return b.w.add(entry{name: name, size: int64(f.UncompressedSize64), mode: mode, modTime: f.Modified}, b.tee(name, rc))
}

// splitEgg finds a zip file among the ancestors of p and returns it with the
// slash separated path inside it.
func splitEgg(p string) (egg, inner string, ok bool) {
	clean := filepath.Clean(p)
	for dir := clean; ; {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false
		}
		if isRegularFile(dir) && dir != clean && isZipFile(dir) {
			rel, err := filepath.Rel(dir, clean)
			if err != nil {
				return "", "", false
			}
			return dir, filepath.ToSlash(rel), true
		}
		dir = parent
	}
}

func isZipFile(p string) bool {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return false
	}
	_ = zr.Close() // Probe only
	return true
}

func isBytecode(name string) bool {
	return strings.HasSuffix(name, ".pyc") || strings.HasSuffix(name, ".pyo")
}

// writeArchive builds an archive into a temp file next to slot and renames it
// into place only after every byte has been written and flushed. On failure
// the temp file is removed and the slot keeps its previous content.
func writeArchive(slot string, c Compression, fill func(w archiveWriter) error) error {
	dir := filepath.Dir(slot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(slot)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close() // May already be closed
			_ = os.Remove(tmpPath)
		}
	}()

	aw, err := newArchiveWriter(tmp, c)
	if err != nil {
		return err
	}
	if err := fill(aw); err != nil {
		_ = aw.Close() // Build already failed
		return err
	}
	if err := aw.Close(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, slot); err != nil {
		return fmt.Errorf("replacing %s: %w", slot, err)
	}
	renamed = true
	return nil
}
