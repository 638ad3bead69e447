package poller

import (
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// MonitoredChannels is the fixed polling and persistence order. The
// graphing reader depends on these names verbatim.
var MonitoredChannels = []string{
	"Pac",
	"Ipv",
	"Vpv",
	"E-Total",
	"h-Total",
	"Temperature",
	"Vac",
	"Fac",
}

var MonitoredChannelSet = sets.NewString(MonitoredChannels...)

// The sanity gate suppresses stats rows while an inverter is starting up
// and key channels still report nonsense or zero.
const sanityMinFac = 50.0

var sanityRequired = []string{"Temperature", "E-Total", "h-Total"}

const mqttTimeout = 3 * time.Second
