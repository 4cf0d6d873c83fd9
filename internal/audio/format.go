// Package audio classifies opaque synthesized audio payloads and repairs
// headerless ones. TTS providers return whatever container their backend
// produces; payloads that match no known magic number are treated as raw
// PCM samples and wrapped into a minimal WAV container before playback.
package audio

// Format identifies the container (or absence of one) of an audio payload.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatOpus Format = "opus"
	FormatAAC  Format = "aac"
	FormatFLAC Format = "flac"
	FormatPCM  Format = "pcm"
)

// Detect sniffs the leading bytes of b and classifies the payload.
// Unrecognized data is raw PCM by definition, never an error: headerless
// sample streams are exactly what some TTS backends emit.
func Detect(b []byte) Format {
	if len(b) >= 3 && b[0] == 'I' && b[1] == 'D' && b[2] == '3' {
		return FormatMP3
	}
	if len(b) >= 4 {
		switch {
		case b[0] == 'R' && b[1] == 'I' && b[2] == 'F' && b[3] == 'F':
			return FormatWAV
		case b[0] == 'O' && b[1] == 'g' && b[2] == 'g' && b[3] == 'S':
			return FormatOpus
		case b[0] == 'f' && b[1] == 'L' && b[2] == 'a' && b[3] == 'C':
			return FormatFLAC
		}
	}
	if len(b) >= 2 && b[0] == 0xFF {
		// ADTS AAC before the generic MPEG frame sync: both start with
		// eleven set bits, so the narrower pattern must win.
		if b[1] == 0xF1 || b[1] == 0xF9 {
			return FormatAAC
		}
		if b[1]&0xE0 == 0xE0 {
			return FormatMP3
		}
	}
	return FormatPCM
}

// ContentType maps a detected format to the media type served to players.
func ContentType(f Format) string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatWAV:
		return "audio/wav"
	case FormatOpus:
		return "audio/ogg"
	case FormatAAC:
		return "audio/aac"
	case FormatFLAC:
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
