package audio

import "encoding/binary"

const wavHeaderSize = 44

// Defaults assumed for headerless provider output. These are policy, not
// discovered from the payload.
const (
	DefaultChannels      = 1
	DefaultSampleRateHz  = 24000
	DefaultBitsPerSample = 16
)

// WrapPCM wraps raw PCM samples with the default parameters (mono, 24 kHz,
// 16-bit little-endian).
func WrapPCM(pcm []byte) []byte {
	return WrapPCMAs(pcm, DefaultChannels, DefaultSampleRateHz, DefaultBitsPerSample)
}

// WrapPCMAs prefixes a 44-byte RIFF/WAVE descriptor to pcm and returns the
// playable buffer. The payload bytes are copied untouched; an empty payload
// still yields a well-formed header with a zero-length data chunk.
func WrapPCMAs(pcm []byte, channels, sampleRateHz, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRateHz * blockAlign
	dataSize := len(pcm)

	out := make([]byte, wavHeaderSize+dataSize)
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM format tag
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRateHz))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitsPerSample))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
	copy(out[wavHeaderSize:], pcm)
	return out
}
