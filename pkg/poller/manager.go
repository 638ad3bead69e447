package poller

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	"swrgateway/pkg/storage"
	"swrgateway/pkg/swrnet"
	"swrgateway/pkg/transport"
)

// Driver is the protocol surface the scheduler drives. *swrnet.Broker is
// the production implementation.
type Driver interface {
	Discover() ([]*swrnet.Device, error)
	Enumerate(device *swrnet.Device) error
	SynOnline(pollTime uint32) error
	GetData(device *swrnet.Device, ch *swrnet.Channel) (*swrnet.Sample, error)
}

type Option func(*Manager)

func WithPublisher(p *Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithDumpDir(dir string) Option {
	return func(m *Manager) { m.dumpDir = dir }
}

func WithCloseBetweenCycles(closeBetween bool) Option {
	return func(m *Manager) { m.closeBetween = closeBetween }
}

// Manager owns the bus. It keeps the poll cadence phase-locked to
// multiples of the interval, retries discovery until the plant answers,
// and hands committed cycles to the storage and the publisher. All bus
// traffic happens on its single run goroutine; the bus is half duplex
// and interleaved requests would corrupt responses.
type Manager struct {
	endpoint     string
	interval     time.Duration
	closeBetween bool
	dumpDir      string
	settle       time.Duration

	store     storage.Storage
	publisher *Publisher

	dial      func(string) (transport.Transport, error)
	newDriver func(transport.Transport) Driver

	transport transport.Transport
	driver    Driver

	mu      sync.RWMutex
	devices []*swrnet.Device

	polling *atomic.Bool
	stopCh  <-chan struct{}
	doneCh  chan struct{}
}

func NewManager(endpoint string, interval time.Duration, store storage.Storage, stop <-chan struct{}, opts ...Option) *Manager {
	m := &Manager{
		endpoint:  endpoint,
		interval:  interval,
		settle:    swrnet.SynSettleDelay,
		store:     store,
		dial:      transport.Open,
		newDriver: func(t transport.Transport) Driver { return swrnet.NewBroker(t) },
		polling:   atomic.NewBool(false),
		stopCh:    stop,
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Start() {
	go m.run()
}

// Done closes once the run loop has detached from the bus.
func (m *Manager) Done() <-chan struct{} {
	return m.doneCh
}

func (m *Manager) Polling() bool {
	return m.polling.Load()
}

// Devices returns the discovered device set in discovery order.
func (m *Manager) Devices() []*swrnet.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*swrnet.Device(nil), m.devices...)
}

func (m *Manager) run() {
	defer close(m.doneCh)
	defer m.detach()

	// Phases A and B: retried with interval back-off until the plant
	// answers; polling never starts against an empty device set.
	for {
		if err := m.bootstrap(); err == nil {
			break
		}
		if !m.sleepUntil(time.Now().Add(m.interval)) {
			return
		}
	}

	m.polling.Store(true)
	defer m.polling.Store(false)

	intervalSecs := int64(m.interval / time.Second)
	next := AlignNext(time.Now().Unix(), intervalSecs)
	for {
		next = nextAfter(next, time.Now().Unix(), intervalSecs)
		if !m.sleepUntil(time.Unix(next, 0)) {
			return
		}
		if err := m.ensureOpen(); err != nil {
			m.comment(0, fmt.Sprintf("transport unavailable: %v", err))
			continue
		}
		m.cycle(next)
		if m.closeBetween {
			m.detach()
		}
	}
}

// AlignNext returns the smallest multiple of interval that is >= now.
func AlignNext(now, interval int64) int64 {
	next := now - now%interval
	if next < now {
		next += interval
	}
	return next
}

// nextAfter catches the schedule up after a slow cycle: it advances the
// last poll time past now without ever leaving the interval grid.
func nextAfter(next, now, interval int64) int64 {
	for next <= now {
		next += interval
	}
	return next
}

func (m *Manager) bootstrap() error {
	if err := m.ensureOpen(); err != nil {
		m.comment(0, fmt.Sprintf("transport unavailable: %v", err))
		return err
	}

	devices, err := m.driver.Discover()
	if err != nil {
		m.comment(0, fmt.Sprintf("device discovery failed: %v", err))
		m.detach()
		return err
	}

	enumerated := 0
	for _, device := range devices {
		m.comment(int(device.Addr), fmt.Sprintf("discovered device serial=%d type=%s", device.Serial, device.DeviceType))
		if err := m.driver.Enumerate(device); err != nil {
			m.comment(int(device.Addr), fmt.Sprintf("channel enumeration failed: %v", err))
			continue
		}
		enumerated++
		for _, name := range device.ChannelOrder {
			ch := device.Channels[name]
			text := fmt.Sprintf("channel %s (%s, unit=%s)", name, swrnet.ChannelKindToString[ch.Kind], ch.Unit)
			if MonitoredChannelSet.Has(name) {
				text += " [monitored]"
			}
			m.comment(int(device.Addr), text)
		}
	}
	if enumerated == 0 {
		m.comment(0, "no device could be enumerated")
		m.detach()
		return swrnet.ErrNoDeviceFound
	}

	m.mu.Lock()
	m.devices = devices
	m.mu.Unlock()
	klog.V(1).InfoS("Bus bootstrap complete", "devices", len(devices), "enumerated", enumerated)
	return nil
}

// cycle runs one time-aligned poll: SYN_ONLINE broadcast, settle, then
// one GET_DATA per (device, monitored channel) in fixed order.
func (m *Manager) cycle(pollTime int64) {
	if err := m.driver.SynOnline(uint32(pollTime)); err != nil {
		m.comment(0, fmt.Sprintf("syn online failed: %v", err))
		m.detach()
		return
	}
	if !m.sleepUntil(time.Now().Add(m.settle)) {
		return
	}

	stamp := storage.FormatStamp(time.Unix(pollTime, 0))
	for _, device := range m.Devices() {
		if device.Channels == nil {
			continue
		}
		values := make(map[string]float64)
		for _, name := range MonitoredChannels {
			ch, ok := device.GetChannel(name)
			if !ok {
				klog.V(3).InfoS("Device does not advertise monitored channel", "addr", device.Addr, "channel", name)
				continue
			}
			sample, err := m.driver.GetData(device, ch)
			if err != nil {
				m.comment(int(device.Addr), fmt.Sprintf("channel %s read failed: %v", name, err))
				continue
			}
			if int64(sample.Since) != pollTime {
				m.comment(int(device.Addr), fmt.Sprintf("channel %s since=%d differs from poll time %d", name, sample.Since, pollTime))
			}
			values[name] = sample.Value
		}
		if !passesSanityGate(values) {
			klog.V(2).InfoS("Dropped cycle row for device", "addr", device.Addr, "values", len(values))
			continue
		}
		row := &storage.StatsRow{Stamp: stamp, Addr: int(device.Addr), Values: values}
		if err := m.store.AppendStats(row); err != nil {
			klog.ErrorS(err, "Failed to append stats row", "addr", device.Addr, "stamp", stamp)
		}
		if m.publisher != nil {
			m.publisher.PublishCycle(device, stamp, values)
		}
	}
}

// passesSanityGate reports whether a device's cycle readings look like a
// running inverter rather than a startup transient.
func passesSanityGate(values map[string]float64) bool {
	fac, ok := values["Fac"]
	if !ok || fac <= sanityMinFac {
		return false
	}
	for _, name := range sanityRequired {
		if _, ok := values[name]; !ok {
			return false
		}
	}
	return true
}

func (m *Manager) ensureOpen() error {
	if m.transport != nil {
		return nil
	}
	t, err := m.dial(m.endpoint)
	if err != nil {
		return err
	}
	if len(m.dumpDir) > 0 {
		t = transport.WithDump(t, m.dumpDir)
	}
	m.transport = t
	m.driver = m.newDriver(t)
	return nil
}

func (m *Manager) detach() {
	if m.transport == nil {
		return
	}
	if err := m.transport.Close(); err != nil {
		klog.V(2).InfoS("Failed to close transport", "err", err)
	}
	m.transport = nil
	m.driver = nil
}

func (m *Manager) sleepUntil(t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-m.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) comment(addr int, text string) {
	klog.V(2).InfoS("Recorded comment", "addr", addr, "comment", text)
	c := &storage.Comment{
		Stamp: storage.FormatStamp(time.Now()),
		Addr:  addr,
		Text:  text,
	}
	if err := m.store.AppendComment(c); err != nil {
		klog.ErrorS(err, "Failed to append comment", "addr", addr)
	}
}
