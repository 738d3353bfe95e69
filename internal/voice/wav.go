package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Transcoder converts an arbitrary audio file to mono 48 kHz PCM WAV.
// Providers save whatever their backend emits and normalize through this.
type Transcoder func(ctx context.Context, src, dst string) error

// FFmpegTranscoder builds the default transcoder on an ffmpeg binary.
func FFmpegTranscoder(binary string) Transcoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return func(ctx context.Context, src, dst string) error {
		cmd := exec.CommandContext(ctx, binary,
			"-y", "-nostdin",
			"-i", src,
			"-ac", "1",
			"-ar", "48000",
			"-sample_fmt", "s16",
			dst,
		)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("ffmpeg transcode: %w: %s", err, tail(string(output), 300))
		}
		return nil
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Duration reads a WAV file's RIFF header and computes the play length from
// the fmt chunk byte rate and the data chunk size.
func Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return durationFromWAV(f)
}

func durationFromWAV(r io.ReadSeeker) (float64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE file")
	}

	var byteRate uint32
	var dataSize uint32
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			byteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])
			if size > 16 {
				if _, err := r.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		case "data":
			dataSize = size
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		}
		// Chunks are word-aligned.
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return 0, err
			}
		}
	}

	if byteRate == 0 {
		return 0, errors.New("wav fmt chunk missing or zero byte rate")
	}
	if dataSize == 0 {
		return 0, errors.New("wav data chunk missing or empty")
	}
	return float64(dataSize) / float64(byteRate), nil
}
