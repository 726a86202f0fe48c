package slimproto

import (
	"fmt"
	"strings"
)

// Capability is one device feature advertised to the server in the HELO
// capabilities string.
type Capability string

// Format capabilities, sent in the order the device prefers them.
const (
	CapWMA  Capability = "wma"
	CapWMAP Capability = "wmap"
	CapWMAL Capability = "wmal"
	CapOgg  Capability = "ogg"
	CapFLAC Capability = "flc"
	CapPCM  Capability = "pcm"
	CapAIFF Capability = "aif"
	CapMP3  Capability = "mp3"
	CapALAC Capability = "alc"
	CapAAC  Capability = "aac"
)

// Feature flag capabilities.
const (
	CapAccuratePlayPoints Capability = "AccuratePlayPoints=1"
	CapHasDigitalOut      Capability = "HasDigitalOut=1"
	CapHasPreAmp          Capability = "HasPreAmp=1"
	CapHasDisableDAC      Capability = "HasDisableDac=1"
	CapRhapsody           Capability = "Rhap"
)

// MaxSampleRate advertises the highest sample rate the device can play.
func MaxSampleRate(hz uint32) Capability {
	return Capability(fmt.Sprintf("MaxSampleRate=%d", hz))
}

// Model advertises the device model identifier.
func Model(model string) Capability {
	return Capability("Model=" + model)
}

// ModelName advertises the human-readable device name.
func ModelName(name string) Capability {
	return Capability("Modelname=" + name)
}

// SyncGroupID advertises the synchronisation group the device belongs to.
func SyncGroupID(id string) Capability {
	return Capability("SyncgroupID=" + id)
}

// Capabilities is the ordered list of device capabilities sent at handshake.
// The list is rendered into the HELO message once and is immutable for the
// lifetime of the connection.
type Capabilities struct {
	caps []Capability
}

// DefaultCapabilities returns the baseline capability set every device
// advertises.
func DefaultCapabilities() Capabilities {
	return Capabilities{caps: []Capability{
		CapAccuratePlayPoints,
		Model("squeezelite"),
	}}
}

// Add appends a capability. Capabilities are sent to the server in the order
// they were added.
func (c *Capabilities) Add(cap Capability) {
	c.caps = append(c.caps, cap)
}

// AddName appends the human-readable device name.
func (c *Capabilities) AddName(name string) {
	c.Add(ModelName(name))
}

// String renders the list as the comma-separated HELO capabilities field.
func (c Capabilities) String() string {
	parts := make([]string, 0, len(c.caps))
	for _, cap := range c.caps {
		parts = append(parts, string(cap))
	}
	return strings.Join(parts, ",")
}
