// Package wav wraps raw PCM in a minimal RIFF/WAVE container. The speech
// service returns bare PCM frames; browsers and media probes need the
// 44-byte header in front before they will touch them.
package wav

import (
	"encoding/binary"
	"fmt"
)

// Speech service output format: 24 kHz, mono, 16-bit signed little-endian.
const (
	SpeechSampleRate = 24000
	SpeechChannels   = 1
	SpeechBitDepth   = 16
)

const headerSize = 44

// Encode prepends a canonical PCM WAVE header to raw sample data. The
// header is the fixed 44-byte layout: RIFF chunk, "fmt " sub-chunk with
// PCM format tag 1, then the "data" sub-chunk.
func Encode(pcm []byte, sampleRate, channels, bitDepth int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid wav parameters: rate=%d channels=%d", sampleRate, channels)
	}
	if bitDepth%8 != 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("invalid wav bit depth: %d", bitDepth)
	}

	blockAlign := channels * bitDepth / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, headerSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitDepth))

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[headerSize:], pcm)

	return out, nil
}

// EncodeSpeech wraps PCM in the speech service's fixed output format.
func EncodeSpeech(pcm []byte) ([]byte, error) {
	return Encode(pcm, SpeechSampleRate, SpeechChannels, SpeechBitDepth)
}
