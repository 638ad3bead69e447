package gateway

import "time"

// GatewayMeta identifies this poller installation towards the MQTT
// broker: its ID goes into the client ID and the topic. The REST surface
// does not expose it.
type GatewayMeta struct {
	Name    string    `json:"name"`
	ID      string    `json:"id"`
	Version string    `json:"eTag"`
	ModTime time.Time `json:"modTime"`
}
