// Package testgen provides utilities for generating small media files with
// realistic headers for testing the scanner and upload paths.
package testgen

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type Format string

const (
	FormatMP4  Format = "mp4"
	FormatGIF  Format = "gif"
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
	FormatText Format = "txt"
)

// Content returns the bytes of a minimal file in the given format. The
// files are not playable, but they carry the magic bytes content sniffing
// looks for.
func Content(format Format) []byte {
	switch format {
	case FormatMP4:
		return mp4Content()
	case FormatGIF:
		return append([]byte("GIF89a"), 1, 0, 1, 0, 0, 0, 0, ';')
	case FormatMP3:
		return append([]byte("ID3"), 4, 0, 0, 0, 0, 0, 0)
	case FormatWAV:
		return wavContent()
	case FormatFLAC:
		return append([]byte("fLaC"), 0, 0, 0, 34)
	default:
		return []byte("just some text\n")
	}
}

// WriteFile writes a file in the given format at path, creating parent
// directories, and stamps it with modTime when it isn't zero.
func WriteFile(t *testing.T, fs afero.Fs, path string, format Format, modTime time.Time) {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, Content(format), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if !modTime.IsZero() {
		if err := fs.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("failed to set times on %s: %v", path, err)
		}
	}
}

// MediaDirs creates video and audio roots under a fresh directory and
// returns the media root.
func MediaDirs(t *testing.T, fs afero.Fs) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "media")
	for _, sub := range []string{"video", "audio"} {
		if err := fs.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			t.Fatalf("failed to create %s dir: %v", sub, err)
		}
	}
	return root
}

func mp4Content() []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(24))
	buf.WriteString("ftyp")
	buf.WriteString("isom")
	_ = binary.Write(&buf, binary.BigEndian, uint32(0x200))
	buf.WriteString("isomiso2")
	return buf.Bytes()
}

func wavContent() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8000))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	return buf.Bytes()
}
