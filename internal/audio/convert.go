package audio

import "encoding/binary"

// Float32ToPCM16 converts float samples to interleaved signed 16-bit
// little-endian PCM, clamping out-of-range samples instead of wrapping.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32767)))
	}
	return out
}

// PCM16BytesPerSecond returns the s16le byte rate for a stream format.
func PCM16BytesPerSecond(sampleRate, channels int) int {
	return sampleRate * channels * 2
}
