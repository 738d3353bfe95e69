package voice

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildWAV writes a minimal PCM WAV with the given byte rate and data size.
func buildWAV(byteRate uint32, dataSize int) []byte {
	var buf bytes.Buffer
	data := make([]byte, dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+16+8+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(48000))
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(data)
	return buf.Bytes()
}

func writeWAVFile(t *testing.T, byteRate uint32, dataSize int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, buildWAV(byteRate, dataSize), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestDurationMatchesHeaderMath(t *testing.T) {
	// 96000 bytes/s with 240000 data bytes is exactly 2.5 seconds.
	path := writeWAVFile(t, 96000, 240000)
	got, err := Duration(path)
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("expected 2.5s, got %v", got)
	}
}

func TestDurationRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	if err := os.WriteFile(path, []byte("ID3 definitely an mp3 frame"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Duration(path); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestDurationRejectsEmptyData(t *testing.T) {
	path := writeWAVFile(t, 96000, 0)
	if _, err := Duration(path); err == nil {
		t.Fatal("expected error for empty data chunk")
	}
}
