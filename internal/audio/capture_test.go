package audio

import (
	"encoding/binary"
	"testing"
)

func TestIsLoopbackName(t *testing.T) {
	tests := []struct {
		name     string
		device   string
		expected bool
	}{
		{"blackhole lowercase", "BlackHole 2ch", true},
		{"blackhole uppercase", "BLACKHOLE", true},
		{"vb-cable", "VB-Cable", true},
		{"loopback", "Loopback Audio", true},
		{"pulse monitor", "Monitor of Built-in Audio", true},
		{"soundflower", "Soundflower (2ch)", true},
		{"stereo mix", "Stereo Mix (Realtek Audio)", true},
		{"wave out", "Wave Out Mix", true},
		{"what u hear", "What U Hear (Sound Blaster)", true},

		{"microphone", "Built-in Microphone", false},
		{"speakers", "External Speakers", false},
		{"hdmi", "HDMI Output", false},
		{"random", "Some Random Device", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLoopbackName(tt.device); got != tt.expected {
				t.Errorf("IsLoopbackName(%q) = %v, want %v", tt.device, got, tt.expected)
			}
		})
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"BlackHole 2ch", "blackhole", true},
		{"BLACKHOLE", "blackhole", true},
		{"blackhole", "BLACKHOLE", true},
		{"Stereo Mix (Realtek)", "stereo mix", true},
		{"External Speakers", "blackhole", false},
		{"", "test", false},
		{"test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			if got := containsIgnoreCase(tt.s, tt.substr); got != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, got, tt.expected)
			}
		})
	}
}

func TestFloat32ToPCM16(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
		want  []int16
	}{
		{"empty", nil, nil},
		{"silence", []float32{0, 0}, []int16{0, 0}},
		{"full scale", []float32{1.0, -1.0}, []int16{32767, -32767}},
		{"half scale", []float32{0.5}, []int16{16383}},
		{"clamps above", []float32{2.5}, []int16{32767}},
		{"clamps below", []float32{-3.0}, []int16{-32767}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Float32ToPCM16(tt.input)
			if len(out) != len(tt.want)*2 {
				t.Fatalf("output length = %d, want %d", len(out), len(tt.want)*2)
			}
			for i, want := range tt.want {
				got := int16(binary.LittleEndian.Uint16(out[i*2:]))
				if got != want {
					t.Errorf("sample %d = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestPCM16BytesPerSecond(t *testing.T) {
	if got := PCM16BytesPerSecond(48000, 2); got != 192000 {
		t.Errorf("PCM16BytesPerSecond(48000, 2) = %d, want 192000", got)
	}
}

func TestCaptureChannelDropsWhenFull(t *testing.T) {
	c := New(Config{BufferDepth: 2})

	// Fill the channel the way the capture goroutine does.
	for i := 0; i < 3; i++ {
		select {
		case c.out <- []byte{0, 0}:
		default:
			c.dropped.Add(1)
		}
	}

	if got := c.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
	if len(c.out) != 2 {
		t.Errorf("buffered = %d, want 2", len(c.out))
	}
}

func TestStopBeforeStart(t *testing.T) {
	c := New(Config{})
	// Must not block or panic when the stream never started.
	c.Stop()
	c.Stop()
}

func TestFormatDefaults(t *testing.T) {
	c := New(Config{SampleRate: 44100, Channels: 1})
	rate, ch := c.Format()
	if rate != 44100 || ch != 1 {
		t.Errorf("Format() = (%d, %d), want (44100, 1)", rate, ch)
	}
}
