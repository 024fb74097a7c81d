// Copyright (c) 2026 lumen3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pak

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func buildTestArchive(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	builder, err := NewBuilder(Header{
		Author:      "test",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer builder.Close()

	for name, data := range files {
		if err := builder.Add(name, data); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if _, err := builder.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBuildAndReadRoundTrip(t *testing.T) {
	files := map[string][]byte{
		"textures/stone.png": bytes.Repeat([]byte("stonestone"), 100),
		"meshes/cube.dae":    []byte("<COLLADA/>"),
	}
	raw := buildTestArchive(t, files)

	archive, err := Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(archive.Names()); got != 2 {
		t.Fatalf("archive has %d entries, want 2", got)
	}

	for name, want := range files {
		got, err := archive.ReadAll(name)
		if err != nil {
			t.Fatalf("ReadAll(%s): %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: content mismatch, got %d bytes want %d", name, len(got), len(want))
		}
	}
}

func TestArchiveHeader(t *testing.T) {
	raw := buildTestArchive(t, map[string][]byte{"a": []byte("data")})

	archive, err := Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	header := archive.Header()
	if header.Author != "test" || header.Version != 1 {
		t.Errorf("header = %+v", header)
	}
	if header.Index[0].Size != 4 {
		t.Errorf("entry size = %d, want 4", header.Index[0].Size)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := Open(bytes.NewReader([]byte("GARBAGEGARBAGEGARBAGEGARBAGE"))); !errors.Is(err, ErrFileFormat) {
		t.Errorf("got %v, want ErrFileFormat", err)
	}
}

func TestReadAllUnknownFile(t *testing.T) {
	raw := buildTestArchive(t, map[string][]byte{"a": []byte("data")})

	archive, err := Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archive.ReadAll("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestOpenFileMemoryMapped(t *testing.T) {
	want := bytes.Repeat([]byte("payload"), 1000)
	raw := buildTestArchive(t, map[string][]byte{"big": want})

	path := filepath.Join(t.TempDir(), "test.pak")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	archive, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	got, err := archive.ReadAll("big")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("mmap read content mismatch")
	}
}

func TestReaderStreams(t *testing.T) {
	want := []byte("streamed content that is read in pieces")
	raw := buildTestArchive(t, map[string][]byte{"file": want})

	archive, err := Open(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	r, err := archive.Open("file")
	if err != nil {
		t.Fatal(err)
	}
	if r.Size() != int64(len(want)) {
		t.Errorf("Size = %d, want %d", r.Size(), len(want))
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("streamed content mismatch")
	}
}
