package datefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRaw(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func TestReadMissingFileReturnsZero(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.date"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("got %v, want zero time", got)
	}
}

func TestReadEmptyPathReturnsZero(t *testing.T) {
	got, err := Read("")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("got %v, want zero time", got)
	}
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointment.date")
	want := time.Unix(1700000000, 0).UTC()

	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padded.date")
	if err := writeRaw(path, "  1700000000  \n"); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Unix() != 1700000000 {
		t.Fatalf("got %v, want unix 1700000000", got)
	}
}
