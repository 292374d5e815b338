package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format describes PCM sample layout.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Clip is a decoded PCM clip ready for playback.
type Clip struct {
	// Name is the file the clip was read from.
	Name string
	// Format is the sample layout of Data.
	Format Format
	// Data holds the raw PCM samples.
	Data []byte
}

const (
	wavHeaderSize   = 12
	chunkHeaderSize = 8
	fmtChunkMinSize = 16
	pcmFormatTag    = 1
	supportedDepth  = 16
)

var (
	errNotWAV            = errors.New("not a RIFF/WAVE file")
	errMissingFormat     = errors.New("missing fmt chunk")
	errMissingData       = errors.New("missing data chunk")
	errUnsupportedFormat = errors.New("unsupported sample format")
	errTruncated         = errors.New("truncated chunk")
)

// LoadClip reads and decodes a WAV file.
func LoadClip(path string) (*Clip, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}

	clip, err := ParseWAV(path, data)
	if err != nil {
		return nil, fmt.Errorf("decode clip %s: %w", path, err)
	}

	return clip, nil
}

// ParseWAV decodes 16-bit PCM WAV data.
func ParseWAV(name string, data []byte) (*Clip, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	reader := bytes.NewReader(data[wavHeaderSize:])

	var (
		format  *Format
		samples []byte
	)

	for samples == nil {
		chunkID, chunkSize, err := readChunkHeader(reader)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}

		if int64(chunkSize) > int64(reader.Len()) {
			return nil, fmt.Errorf("%q chunk: %w", chunkID, errTruncated)
		}

		body := make([]byte, chunkSize)
		if _, err = io.ReadFull(reader, body); err != nil {
			return nil, fmt.Errorf("read %q chunk: %w", chunkID, err)
		}

		// Chunks are padded to an even size.
		if chunkSize%2 == 1 {
			_, _ = reader.ReadByte()
		}

		switch chunkID {
		case "fmt ":
			if format, err = parseFormatChunk(body); err != nil {
				return nil, err
			}
		case "data":
			samples = body
		}
	}

	if format == nil {
		return nil, errMissingFormat
	}

	if len(samples) == 0 {
		return nil, errMissingData
	}

	return &Clip{Name: name, Format: *format, Data: samples}, nil
}

func parseFormatChunk(body []byte) (*Format, error) {
	if len(body) < fmtChunkMinSize {
		return nil, fmt.Errorf("fmt chunk too short: %w", errUnsupportedFormat)
	}

	tag := binary.LittleEndian.Uint16(body[0:2])
	format := &Format{
		Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
		SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
		BitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
	}

	if tag != pcmFormatTag || format.BitDepth != supportedDepth || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("tag %d, %d bit, %d channels: %w",
			tag, format.BitDepth, format.Channels, errUnsupportedFormat)
	}

	return format, nil
}

func readChunkHeader(r io.Reader) (string, uint32, error) {
	var header [chunkHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", 0, err
	}

	return string(header[0:4]), binary.LittleEndian.Uint32(header[4:8]), nil
}
