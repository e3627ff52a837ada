package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// WAVHeaderSize is the size of the canonical PCM WAV header
	WAVHeaderSize = 44

	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
)

// WAVHeader represents the header structure of a canonical PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// newWAVHeader builds the header for 16-bit PCM with the given layout
func newWAVHeader(channels, sampleRate, frames int) WAVHeader {
	dataSize := uint32(frames * channels * bytesPerSample)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     WAVHeaderSize - 8 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * bytesPerSample * channels),
		BlockAlign:    uint16(channels * bytesPerSample),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// put writes the header into the first 44 bytes of b, little-endian
func (h WAVHeader) put(b []byte) {
	le := binary.LittleEndian
	copy(b[0:4], h.ChunkID[:])
	le.PutUint32(b[4:8], h.ChunkSize)
	copy(b[8:12], h.Format[:])
	copy(b[12:16], h.Subchunk1ID[:])
	le.PutUint32(b[16:20], h.Subchunk1Size)
	le.PutUint16(b[20:22], h.AudioFormat)
	le.PutUint16(b[22:24], h.NumChannels)
	le.PutUint32(b[24:28], h.SampleRate)
	le.PutUint32(b[28:32], h.ByteRate)
	le.PutUint16(b[32:34], h.BlockAlign)
	le.PutUint16(b[34:36], h.BitsPerSample)
	copy(b[36:40], h.Subchunk2ID[:])
	le.PutUint32(b[40:44], h.Subchunk2Size)
}

// EncodeWAV encodes a sample buffer as a canonical 16-bit PCM WAV file.
// Samples are interleaved frame by frame; the output is exactly
// 44 + frames*channels*2 bytes long.
func EncodeWAV(buf *SampleBuffer) []byte {
	channels := buf.NumChannels()
	frames := buf.Frames()

	out := make([]byte, WAVHeaderSize+frames*channels*bytesPerSample)
	newWAVHeader(channels, buf.SampleRate(), frames).put(out)

	pos := WAVHeaderSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(out[pos:], uint16(FloatToPCM16(buf.channels[ch][i])))
			pos += bytesPerSample
		}
	}

	return out
}

// WAVInfo summarizes a WAV file's format
type WAVInfo struct {
	SampleRate    uint32        `json:"sample_rate"`
	Channels      uint16        `json:"channels"`
	BitsPerSample uint16        `json:"bits_per_sample"`
	Frames        uint32        `json:"frames"`
	DataSize      uint32        `json:"data_size_bytes"`
	Duration      time.Duration `json:"duration_ns"`
}

// readHeader parses and validates the canonical 44-byte header
func readHeader(data []byte) (WAVHeader, error) {
	var header WAVHeader
	if len(data) < WAVHeaderSize {
		return header, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", WAVHeaderSize, len(data))
	}

	if err := binary.Read(bytes.NewReader(data[:WAVHeaderSize]), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return header, fmt.Errorf("invalid WAV file: missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return header, fmt.Errorf("invalid WAV file: missing WAVE format")
	case string(header.Subchunk1ID[:]) != "fmt ":
		return header, fmt.Errorf("invalid WAV file: missing fmt chunk")
	case string(header.Subchunk2ID[:]) != "data":
		return header, fmt.Errorf("invalid WAV file: missing data chunk")
	case header.AudioFormat != 1:
		return header, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	case header.BitsPerSample != bitsPerSample:
		return header, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	case header.NumChannels == 0:
		return header, fmt.Errorf("invalid channel count: 0")
	case header.SampleRate == 0:
		return header, fmt.Errorf("invalid sample rate: 0")
	}

	if int(header.Subchunk2Size) > len(data)-WAVHeaderSize {
		return header, fmt.Errorf("WAV data truncated: header declares %d data bytes, have %d",
			header.Subchunk2Size, len(data)-WAVHeaderSize)
	}

	return header, nil
}

func infoFromHeader(h WAVHeader) *WAVInfo {
	frames := h.Subchunk2Size / uint32(h.BlockAlign)
	return &WAVInfo{
		SampleRate:    h.SampleRate,
		Channels:      h.NumChannels,
		BitsPerSample: h.BitsPerSample,
		Frames:        frames,
		DataSize:      h.Subchunk2Size,
		Duration:      time.Duration(float64(frames) / float64(h.SampleRate) * float64(time.Second)),
	}
}

// GetWAVInfo extracts metadata from a WAV file without decoding samples
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	return infoFromHeader(header), nil
}

// DecodeWAV decodes a 16-bit PCM WAV file into de-interleaved channels
func DecodeWAV(data []byte) (*WAVInfo, [][]int16, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, nil, err
	}

	info := infoFromHeader(header)
	channels := make([][]int16, info.Channels)
	for ch := range channels {
		channels[ch] = make([]int16, info.Frames)
	}

	pos := WAVHeaderSize
	for i := 0; i < int(info.Frames); i++ {
		for ch := range channels {
			channels[ch][i] = int16(binary.LittleEndian.Uint16(data[pos:]))
			pos += bytesPerSample
		}
	}

	return info, channels, nil
}
