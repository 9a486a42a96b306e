package audio

import (
	"github.com/gordonklaus/portaudio"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

// Device describes one input device for diagnostics.
type Device struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
	Loopback          bool    `json:"loopback"`
}

// ListDevices enumerates input-capable devices with loopback
// classification. Used by the CLI and the devices endpoint.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAudioDevice, "portaudio init failed")
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAudioDevice, "audio device enumeration failed")
	}

	var out []Device
	for i, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:             i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			Loopback:          IsLoopbackName(dev.Name),
		})
	}
	return out, nil
}
