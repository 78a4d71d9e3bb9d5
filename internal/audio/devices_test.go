// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// mockHost replaces the PortAudio device list with a fixed set resembling a
// desktop with a microphone, speakers and a VoiceMeeter virtual cable.
func mockHost(t *testing.T) []*portaudio.DeviceInfo {
	t.Helper()
	infos := []*portaudio.DeviceInfo{
		{Name: "Microphone (USB Audio)", MaxInputChannels: 2, DefaultSampleRate: 48000,
			DefaultLowInputLatency: 10 * time.Millisecond, DefaultHighInputLatency: 40 * time.Millisecond},
		{Name: "Speakers (Realtek)", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "VoiceMeeter Aux Input (VB-Audio)", MaxOutputChannels: 8, DefaultSampleRate: 48000},
		{Name: "Headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}

	origDevices := paLibDevicesFunc
	origIn := paLibDefaultInputDeviceFunc
	origOut := paLibDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origIn
		paLibDefaultOutputDeviceFunc = origOut
	})

	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return infos, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return infos[0], nil }
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return infos[1], nil }
	return infos
}

func TestHostDevices(t *testing.T) {
	infos := mockHost(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(infos) {
		t.Fatalf("HostDevices returned %d devices, want %d", len(devices), len(infos))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != infos[i].Name {
			t.Errorf("Device %d name = %q, want %q", i, d.Name, infos[i].Name)
		}
	}

	kinds := []string{"Input", "Output", "Output", "Input/Output"}
	for i, want := range kinds {
		if got := devices[i].Kind(); got != want {
			t.Errorf("Device %d Kind() = %q, want %q", i, got, want)
		}
	}
	if got := (Device{}).Kind(); got != "Unavailable" {
		t.Errorf("zero Device Kind() = %q", got)
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	infos := mockHost(t)

	tests := []struct {
		name   string
		id     int
		want   *portaudio.DeviceInfo
		substr string
	}{
		{"Default", DefaultDeviceID, infos[0], ""},
		{"Valid input device", 3, infos[3], ""},
		{"Negative ID", -2, nil, "invalid device ID"},
		{"Too high ID", len(infos) + 10, nil, "invalid device ID"},
		{"Non-input device", 1, nil, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := InputDevice(tt.id)
			if tt.substr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.substr) {
					t.Errorf("InputDevice(%d) error = %v, want substring %q", tt.id, err, tt.substr)
				}
				return
			}
			if err != nil || dev != tt.want {
				t.Errorf("InputDevice(%d) = %v, %v", tt.id, dev, err)
			}
		})
	}
}

func TestOutputDevice(t *testing.T) {
	infos := mockHost(t)

	tests := []struct {
		name   string
		id     int
		want   *portaudio.DeviceInfo
		substr string
	}{
		{"Default", DefaultDeviceID, infos[1], ""},
		{"Virtual cable", 2, infos[2], ""},
		{"Too high ID", 99, nil, "invalid device ID"},
		{"Non-output device", 0, nil, "does not support output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := OutputDevice(tt.id)
			if tt.substr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.substr) {
					t.Errorf("OutputDevice(%d) error = %v, want substring %q", tt.id, err, tt.substr)
				}
				return
			}
			if err != nil || dev != tt.want {
				t.Errorf("OutputDevice(%d) = %v, %v", tt.id, dev, err)
			}
		})
	}
}

func TestFindOutputDevice(t *testing.T) {
	infos := mockHost(t)

	dev, err := FindOutputDevice("voicemeeter aux input")
	if err != nil || dev != infos[2] {
		t.Errorf("FindOutputDevice(voicemeeter) = %v, %v", dev, err)
	}

	// Input-only devices never match.
	if _, err := FindOutputDevice("microphone"); !errors.Is(err, ErrNoDevice) {
		t.Errorf("FindOutputDevice(microphone) error = %v, want ErrNoDevice", err)
	}
	if _, err := FindOutputDevice("  "); !errors.Is(err, ErrNoDevice) {
		t.Errorf("FindOutputDevice(blank) error = %v, want ErrNoDevice", err)
	}
}

func TestResolveOutputDevice(t *testing.T) {
	infos := mockHost(t)

	tests := []struct {
		name     string
		id       int
		speakers bool
		match    string
		want     *portaudio.DeviceInfo
	}{
		{"Explicit ID wins", 3, true, "voicemeeter", infos[3]},
		{"Speakers", DefaultDeviceID, true, "voicemeeter", infos[1]},
		{"Name match", DefaultDeviceID, false, "VoiceMeeter Aux", infos[2]},
		{"Blank match", DefaultDeviceID, false, "", infos[1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := ResolveOutputDevice(tt.id, tt.speakers, tt.match)
			if err != nil || dev != tt.want {
				t.Errorf("ResolveOutputDevice() = %v, %v; want %v", dev, err, tt.want.Name)
			}
		})
	}

	if _, err := ResolveOutputDevice(DefaultDeviceID, false, "cable"); !errors.Is(err, ErrNoDevice) {
		t.Errorf("unmatched name error = %v, want ErrNoDevice", err)
	}
}

func TestDefaultDeviceErrors(t *testing.T) {
	mockHost(t)
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default input error")
	}
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default output error")
	}

	if _, err := InputDevice(DefaultDeviceID); err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock input error, got %v", err)
	}
	if _, err := OutputDevice(DefaultDeviceID); err == nil || !strings.Contains(err.Error(), "mock default output error") {
		t.Errorf("expected mock output error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	mockHost(t)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[0] Microphone (USB Audio) (Input)",
		"[2] VoiceMeeter Aux Input (VB-Audio) (Output)",
		"Input channels: 1, Output channels: 2",
		"Latency: Low=10.00ms, High=40.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ListDevices output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, nil
	}

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", devices)
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}
