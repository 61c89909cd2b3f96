// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// readArchive returns every member of the archive at path with its content.
// It fails the test on duplicate member names.
func readArchive(t *testing.T, path string, c Compression) map[string]string {
	t.Helper()
	members := map[string]string{}
	record := func(name string, r io.Reader) {
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("failed to read member %s: %v", name, err)
		}
		if _, dup := members[name]; dup {
			t.Errorf("duplicate archive member %q", name)
		}
		members[name] = string(data)
	}

	if c == CompressionZip {
		zr, err := zip.OpenReader(path)
		if err != nil {
			t.Fatalf("failed to open zip %s: %v", path, err)
		}
		defer func() { _ = zr.Close() }()
		for _, f := range zr.File {
			rc, openErr := f.Open()
			if openErr != nil {
				t.Fatalf("failed to open member %s: %v", f.Name, openErr)
			}
			record(f.Name, rc)
			_ = rc.Close()
		}
		return members
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader
	switch c {
	case CompressionZstd:
		dec, decErr := zstd.NewReader(f)
		if decErr != nil {
			t.Fatalf("failed to open zstd stream: %v", decErr)
		}
		defer dec.Close()
		r = dec
	default:
		gz, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			t.Fatalf("failed to open gzip stream: %v", gzErr)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			t.Fatalf("failed to read tar: %v", nextErr)
		}
		record(hdr.Name, tr)
	}
	return members
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteArchive_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range Compressions() {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()
			slot := filepath.Join(t.TempDir(), "thin", "thin."+c.Extension())
			env, _ := newTestEnv(t)

			err := writeArchive(slot, c, func(aw archiveWriter) error {
				bw := newBundleWriter(env, aw, false, false, time.Unix(0, 0))
				if err := bw.addBytes("a.txt", []byte("alpha"), 0o644); err != nil {
					return err
				}
				return bw.addBytes("dir/b.txt", []byte("beta"), 0o755)
			})
			if err != nil {
				t.Fatalf("writeArchive() error = %v", err)
			}

			members := readArchive(t, slot, c)
			if members["a.txt"] != "alpha" || members["dir/b.txt"] != "beta" {
				t.Errorf("unexpected members %v", members)
			}
		})
	}
}

func TestWriteArchive_FailureKeepsSlot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	slot := filepath.Join(dir, "thin.tgz")
	writeFile(t, slot, "previous")

	boom := errors.New("boom")
	err := writeArchive(slot, CompressionGzip, func(aw archiveWriter) error {
		if addErr := aw.add(entry{name: "x", size: 1, mode: 0o644}, strings.NewReader("x")); addErr != nil {
			return addErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fill error, got %v", err)
	}

	data, readErr := os.ReadFile(slot)
	if readErr != nil || string(data) != "previous" {
		t.Errorf("slot changed after a failed build: %q, %v", data, readErr)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Errorf("temp files left behind: %v", names)
	}
}

func TestBundleWriter_AddTop(t *testing.T) {
	t.Parallel()

	site := newSitePackages(t)
	link := filepath.Join(site, "salt", "utils", "loop")
	if err := os.Symlink(filepath.Join(site, "salt"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	slot := filepath.Join(t.TempDir(), "out.tgz")
	env, _ := newTestEnv(t)
	var checksum string
	err := writeArchive(slot, CompressionGzip, func(aw archiveWriter) error {
		bw := newBundleWriter(env, aw, true, true, time.Now())
		if err := bw.addTop("pyall", filepath.Join(site, "salt")); err != nil {
			return err
		}
		if err := bw.addTop("py3", filepath.Join(site, "six.py")); err != nil {
			return err
		}
		if err := bw.addTop("py3", "relative/yaml"); err != nil {
			return err
		}
		checksum = bw.CodeChecksum()
		return nil
	})
	if err != nil {
		t.Fatalf("writeArchive() error = %v", err)
	}

	members := readArchive(t, slot, CompressionGzip)
	for _, want := range []string{"pyall/salt/__init__.py", "pyall/salt/utils/files.py", "py3/six.py"} {
		if _, ok := members[want]; !ok {
			t.Errorf("missing member %q", want)
		}
	}
	for name := range members {
		if strings.HasSuffix(name, ".pyc") || strings.Contains(name, "__pycache__") {
			t.Errorf("bytecode member %q should be skipped", name)
		}
		if strings.HasPrefix(name, "py3/yaml") {
			t.Errorf("relative top should be skipped with absonly, got %q", name)
		}
		if strings.Count(name, "loop/") > 1 {
			t.Errorf("symlink cycle followed: %q", name)
		}
	}
	if len(checksum) != 64 {
		t.Errorf("CodeChecksum() = %q, want a sha256 hex digest", checksum)
	}
}

func TestBundleWriter_EggTop(t *testing.T) {
	t.Parallel()

	egg := filepath.Join(t.TempDir(), "dep.egg")
	f, err := os.Create(egg)
	if err != nil {
		t.Fatalf("failed to create egg: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"tornado/__init__.py", "tornado/web.py", "tornado/web.pyc", "EGG-INFO/PKG-INFO"} {
		w, createErr := zw.Create(name)
		if createErr != nil {
			t.Fatalf("failed to add %s: %v", name, createErr)
		}
		_, _ = w.Write([]byte(name))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close egg: %v", err)
	}

	slot := filepath.Join(t.TempDir(), "out.tgz")
	env, _ := newTestEnv(t)
	err = writeArchive(slot, CompressionGzip, func(aw archiveWriter) error {
		return newBundleWriter(env, aw, false, false, time.Now()).addTop("py2", filepath.Join(egg, "tornado"))
	})
	if err != nil {
		t.Fatalf("writeArchive() error = %v", err)
	}

	members := readArchive(t, slot, CompressionGzip)
	if len(members) != 2 {
		t.Errorf("expected 2 members, got %v", members)
	}
	if members["py2/tornado/web.py"] != "tornado/web.py" {
		t.Errorf("egg member not copied: %v", members)
	}
}
