package poller

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swrgateway/pkg/storage"
	"swrgateway/pkg/swrnet"
)

// fakeDriver answers from canned samples keyed by addr and channel name.
type fakeDriver struct {
	devices     []*swrnet.Device
	samples     map[uint16]map[string]*swrnet.Sample
	failing     map[string]bool
	synTimes    []uint32
	discoverErr error
}

func (f *fakeDriver) Discover() ([]*swrnet.Device, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.devices, nil
}

func (f *fakeDriver) Enumerate(device *swrnet.Device) error {
	return nil
}

func (f *fakeDriver) SynOnline(pollTime uint32) error {
	f.synTimes = append(f.synTimes, pollTime)
	return nil
}

func (f *fakeDriver) GetData(device *swrnet.Device, ch *swrnet.Channel) (*swrnet.Sample, error) {
	if f.failing[fmt.Sprintf("%d/%s", device.Addr, ch.Name)] {
		return nil, swrnet.ErrNoResponse
	}
	s, ok := f.samples[device.Addr][ch.Name]
	if !ok {
		return nil, swrnet.ErrNoResponse
	}
	return s, nil
}

func monitoredDevice(addr uint16) *swrnet.Device {
	channels := make(map[string]*swrnet.Channel)
	order := make([]string, 0, len(MonitoredChannels))
	for i, name := range MonitoredChannels {
		channels[name] = &swrnet.Channel{Index: byte(i + 1), Kind: swrnet.Analog, Name: name, Gain: 1}
		order = append(order, name)
	}
	return &swrnet.Device{ID: fmt.Sprintf("dev-%d", addr), Addr: addr, Channels: channels, ChannelOrder: order}
}

func healthySamples(addr uint16, pollTime int64) map[string]*swrnet.Sample {
	out := make(map[string]*swrnet.Sample)
	for i, name := range MonitoredChannels {
		out[name] = &swrnet.Sample{
			Addr:    addr,
			Channel: name,
			Value:   float64(100 + i),
			Since:   uint32(pollTime),
		}
	}
	out["Fac"].Value = 60
	return out
}

func testManager(store storage.Storage, driver Driver) *Manager {
	m := NewManager("test:0", time.Minute, store, make(chan struct{}))
	m.driver = driver
	m.settle = 0
	return m
}

func TestAlignNext(t *testing.T) {
	assert.Equal(t, int64(120), AlignNext(120, 60))
	assert.Equal(t, int64(180), AlignNext(121, 60))
	assert.Equal(t, int64(0), AlignNext(0, 60))
	assert.Equal(t, int64(60), AlignNext(1, 60))
}

func TestNextAfterStaysPhaseLocked(t *testing.T) {
	// a stall of 3.5 intervals still lands on the grid, strictly after
	// the previous poll
	next := nextAfter(120, 120+210, 60)
	assert.Equal(t, int64(360), next)
	assert.Zero(t, next%60)

	// a fast cycle advances exactly one interval
	assert.Equal(t, int64(180), nextAfter(120, 120, 60))
}

func TestPassesSanityGate(t *testing.T) {
	healthy := map[string]float64{"Fac": 60, "Temperature": 35, "E-Total": 1, "h-Total": 2}
	assert.True(t, passesSanityGate(healthy))

	zeroFac := map[string]float64{"Fac": 0, "Temperature": 35, "E-Total": 1, "h-Total": 2}
	assert.False(t, passesSanityGate(zeroFac))

	noTemp := map[string]float64{"Fac": 60, "E-Total": 1, "h-Total": 2}
	assert.False(t, passesSanityGate(noTemp))

	assert.False(t, passesSanityGate(map[string]float64{}))
}

func TestCycleCommitsRow(t *testing.T) {
	pollTime := time.Now().Unix() - time.Now().Unix()%60
	device := monitoredDevice(2)
	driver := &fakeDriver{
		samples: map[uint16]map[string]*swrnet.Sample{2: healthySamples(2, pollTime)},
	}
	store := storage.NewMemoryStore()
	m := testManager(store, driver)
	m.devices = []*swrnet.Device{device}

	m.cycle(pollTime)

	require.Equal(t, []uint32{uint32(pollTime)}, driver.synTimes)
	rows, err := store.QueryStats(time.Unix(pollTime-60, 0), time.Unix(pollTime+60, 0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Addr)
	assert.Equal(t, storage.FormatStamp(time.Unix(pollTime, 0)), rows[0].Stamp)
	assert.Len(t, rows[0].Values, len(MonitoredChannels))
	assert.Equal(t, 60.0, rows[0].Values["Fac"])
}

func TestCycleSanityGateSuppressesRow(t *testing.T) {
	pollTime := time.Now().Unix() - time.Now().Unix()%60
	good := monitoredDevice(2)
	starting := monitoredDevice(3)

	startingSamples := healthySamples(3, pollTime)
	startingSamples["Fac"].Value = 0

	driver := &fakeDriver{
		samples: map[uint16]map[string]*swrnet.Sample{
			2: healthySamples(2, pollTime),
			3: startingSamples,
		},
	}
	store := storage.NewMemoryStore()
	m := testManager(store, driver)
	m.devices = []*swrnet.Device{good, starting}

	m.cycle(pollTime)

	rows, err := store.QueryStats(time.Unix(pollTime-60, 0), time.Unix(pollTime+60, 0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Addr)
}

func TestCycleSinceMismatchRecordsComment(t *testing.T) {
	pollTime := time.Now().Unix() - time.Now().Unix()%60
	device := monitoredDevice(2)
	samples := healthySamples(2, pollTime)
	samples["Pac"].Since = uint32(pollTime - 60)

	driver := &fakeDriver{samples: map[uint16]map[string]*swrnet.Sample{2: samples}}
	store := storage.NewMemoryStore()
	m := testManager(store, driver)
	m.devices = []*swrnet.Device{device}

	m.cycle(pollTime)

	// the sample is kept despite the warning
	rows, err := store.QueryStats(time.Unix(pollTime-60, 0), time.Unix(pollTime+60, 0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Values, "Pac")

	comments, err := store.QueryComments(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	found := false
	for _, c := range comments {
		if c.Addr == 2 && strings.Contains(c.Text, "differs from poll time") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCycleFailedChannelDropsValueOnly(t *testing.T) {
	pollTime := time.Now().Unix() - time.Now().Unix()%60
	device := monitoredDevice(2)
	driver := &fakeDriver{
		samples: map[uint16]map[string]*swrnet.Sample{2: healthySamples(2, pollTime)},
		failing: map[string]bool{"2/Vac": true},
	}
	store := storage.NewMemoryStore()
	m := testManager(store, driver)
	m.devices = []*swrnet.Device{device}

	m.cycle(pollTime)

	rows, err := store.QueryStats(time.Unix(pollTime-60, 0), time.Unix(pollTime+60, 0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0].Values, "Vac")
	assert.Contains(t, rows[0].Values, "Pac")
}

func TestBootstrapRecordsChannelComments(t *testing.T) {
	device := monitoredDevice(2)
	driver := &fakeDriver{devices: []*swrnet.Device{device}}
	store := storage.NewMemoryStore()
	m := testManager(store, driver)
	m.transport = nopTransport{}

	require.NoError(t, m.bootstrap())
	assert.Equal(t, []*swrnet.Device{device}, m.Devices())

	comments, err := store.QueryComments(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	// one discovery comment plus one per channel
	assert.Len(t, comments, 1+len(MonitoredChannels))
}

func TestBootstrapDiscoveryFailure(t *testing.T) {
	driver := &fakeDriver{discoverErr: swrnet.ErrNoDeviceFound}
	store := storage.NewMemoryStore()
	m := testManager(store, driver)
	m.transport = nopTransport{}

	assert.Error(t, m.bootstrap())

	comments, err := store.QueryComments(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].Text, "discovery failed")
}

type nopTransport struct{}

func (nopTransport) WriteAll(p []byte) error { return nil }
func (nopTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	return nil, nil
}
func (nopTransport) Close() error { return nil }
