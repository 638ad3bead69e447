package swrnet

import (
	"time"
)

// Device is one inverter discovered on the bus. Created during
// discovery, it is mutated only to attach the channel catalogue and then
// retained for the process lifetime unless re-discovery is forced.
type Device struct {
	// ID identifies the device object on the REST surface; the bus itself
	// only knows Addr, and MQTT topics are keyed by Addr as well.
	ID           string    `json:"id"`
	Addr         uint16    `json:"addr"`
	Serial       uint32    `json:"serial"`
	DeviceType   string    `json:"deviceType"`
	DiscoveredAt time.Time `json:"discoveredAt"`

	Channels     map[string]*Channel `json:"channels,omitempty"`
	ChannelOrder []string            `json:"channelOrder,omitempty"`
}

func (d *Device) GetChannel(name string) (*Channel, bool) {
	ch, ok := d.Channels[name]
	return ch, ok
}
