package slimproto

import "testing"

func TestCapabilitiesString(t *testing.T) {
	caps := DefaultCapabilities()
	caps.AddName("kitchen")
	caps.Add(CapMP3)
	caps.Add(MaxSampleRate(96000))
	caps.Add(CapOgg)

	want := "AccuratePlayPoints=1,Model=squeezelite,Modelname=kitchen,mp3,MaxSampleRate=96000,ogg"
	if got := caps.String(); got != want {
		t.Errorf("String() = %q, expected %q", got, want)
	}
}

func TestCapabilitiesEmpty(t *testing.T) {
	var caps Capabilities
	if got := caps.String(); got != "" {
		t.Errorf("String() = %q, expected empty", got)
	}
}

func TestCapabilityHelpers(t *testing.T) {
	tests := []struct {
		name     string
		cap      Capability
		expected string
	}{
		{name: "max sample rate", cap: MaxSampleRate(48000), expected: "MaxSampleRate=48000"},
		{name: "model", cap: Model("squeezelite"), expected: "Model=squeezelite"},
		{name: "model name", cap: ModelName("Living Room"), expected: "Modelname=Living Room"},
		{name: "sync group", cap: SyncGroupID("abc123"), expected: "SyncgroupID=abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.cap) != tt.expected {
				t.Errorf("capability = %q, expected %q", tt.cap, tt.expected)
			}
		})
	}
}
