package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mustWrite(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.JPG"), "a")
	mustWrite(t, filepath.Join(root, "sub", "b.png"), "b")
	mustWrite(t, filepath.Join(root, "sub", "notes.txt"), "x")
	mustWrite(t, filepath.Join(root, ".hidden", "c.png"), "c")
	mustWrite(t, filepath.Join(root, ".d.png"), "d")

	files, stats, err := ScanDirectory(context.Background(), root, ScanOptions{SkipHidden: true, Hash: true})
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		got = append(got, rel+":"+f.Ext)
	}
	sort.Strings(got)
	want := []string{"a.JPG:jpg", filepath.Join("sub", "b.png") + ":png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if stats.Matched != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	sum := sha256.Sum256([]byte("a"))
	for _, f := range files {
		if filepath.Base(f.Path) == "a.JPG" && f.HashHex != hex.EncodeToString(sum[:]) {
			t.Errorf("hash = %s", f.HashHex)
		}
		if f.Size != 1 {
			t.Errorf("size of %s = %d", f.Path, f.Size)
		}
	}
}

func TestScanDirectoryIncludeHidden(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, ".hidden", "c.png"), "c")
	mustWrite(t, filepath.Join(root, "e.tiff"), "e")

	files, _, err := ScanDirectory(context.Background(), root, ScanOptions{IncludeExts: []string{".PNG", "pdf"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "c.png" || files[0].HashHex != "" {
		t.Errorf("got %+v", files)
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	if _, _, err := ScanDirectory(context.Background(), " ", ScanOptions{}); err == nil {
		t.Error("blank root should fail")
	}
	if _, _, err := ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), ScanOptions{}); err == nil {
		t.Error("missing root should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := ScanDirectory(ctx, t.TempDir(), ScanOptions{}); err == nil {
		t.Error("cancelled context should fail")
	}
}

func TestIsHidden(t *testing.T) {
	cases := map[string]bool{
		"/a/.git":     true,
		".env.png":    true,
		"/a/b.png":    false,
		".":           false,
		"/a/b/../c.x": false,
	}
	for in, want := range cases {
		if got := IsHidden(in); got != want {
			t.Errorf("IsHidden(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWatcherEmitsNewImages(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "existing.png"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return filepath.Base(p)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	if got := next(); got != "existing.png" {
		t.Fatalf("initial scan emitted %q", got)
	}

	mustWrite(t, filepath.Join(root, "skip.txt"), "t")
	mustWrite(t, filepath.Join(root, "new.jpg"), "n")
	if got := next(); got != "new.jpg" {
		t.Fatalf("got %q, want new.jpg", got)
	}

	cancel()
	for range events {
	}
}
