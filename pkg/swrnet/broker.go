package swrnet

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"swrgateway/pkg/transport"
	"swrgateway/pkg/utils/binutil"
	"swrgateway/pkg/utils/uuidutil"
)

// Broker speaks the SWR-NET session protocol over one transport. The bus
// is a half-duplex shared medium: exactly one broker may own a link, and
// every exchange completes before the next begins.
type Broker struct {
	transport transport.Transport
	rx        *Receiver
}

func NewBroker(t transport.Transport) *Broker {
	return &Broker{
		transport: t,
		rx:        NewReceiver(t),
	}
}

func (b *Broker) request(dst uint16, cmd Command, ctl Control, payload []byte) error {
	frame := BuildFrame(dst, 0, cmd, ctl, payload)
	klog.V(5).InfoS("Sending telegram", "cmd", CommandToString[cmd], "ctl", ControlToString[ctl], "dst", dst, "bytes", len(frame))
	return b.transport.WriteAll(frame)
}

// Discover broadcasts GET_NET_START and gathers answers until the bus
// goes quiet. Each answering inverter reports its serial number and
// device type tag; the firmware-assigned bus address arrives as the
// frame's source.
func (b *Broker) Discover() ([]*Device, error) {
	if err := b.request(ControllerAddr, CmdGetNetStart, ControlBroadcast, nil); err != nil {
		return nil, err
	}

	devices := make([]*Device, 0)
	seen := make(map[uint16]bool)
	for {
		resp, err := b.rx.Next()
		if err == ErrNoResponse {
			break
		}
		if err == ErrFragmentInconsistent {
			klog.V(2).InfoS("Discarded inconsistent response during discovery")
			continue
		}
		if err != nil {
			return nil, err
		}
		if resp.Cmd != CmdGetNetStart {
			klog.V(2).InfoS("Ignored unexpected command during discovery", "cmd", resp.Cmd)
			continue
		}
		if resp.Src == ControllerAddr {
			klog.V(2).InfoS("Ignored discovery response with controller source address")
			continue
		}
		if len(resp.Payload) < 12 {
			klog.V(2).InfoS("Ignored short discovery payload", "src", resp.Src, "bytes", len(resp.Payload))
			continue
		}
		if seen[resp.Src] {
			continue
		}
		seen[resp.Src] = true
		device := &Device{
			ID:           uuidutil.UUID(),
			Addr:         resp.Src,
			Serial:       binutil.ParseUint32(resp.Payload[0:4]),
			DeviceType:   trimPadded(resp.Payload[4:12]),
			DiscoveredAt: time.Now(),
		}
		klog.V(2).InfoS("Discovered device", "addr", device.Addr, "serial", device.Serial, "type", device.DeviceType)
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, ErrNoDeviceFound
	}
	return devices, nil
}

// Enumerate asks one device for its channel catalogue and attaches it.
func (b *Broker) Enumerate(device *Device) error {
	if err := b.request(device.Addr, CmdGetCInfo, ControlRequest, nil); err != nil {
		return err
	}
	resp, err := b.awaitResponse(device.Addr, CmdGetCInfo)
	if err != nil {
		return err
	}
	catalogue, order, err := DecodeChannels(resp.Payload)
	if err != nil {
		return errors.Wrapf(err, "device %d catalogue", device.Addr)
	}
	device.Channels = catalogue
	device.ChannelOrder = order
	klog.V(2).InfoS("Enumerated device channels", "addr", device.Addr, "channels", len(order))
	return nil
}

// SynOnline broadcasts the cycle's nominal poll time. No response is
// awaited; callers must allow SynSettleDelay before the first GET_DATA.
func (b *Broker) SynOnline(pollTime uint32) error {
	payload := make([]byte, 4)
	binutil.WriteUint32(payload, pollTime)
	return b.request(ControllerAddr, CmdSynOnline, ControlBroadcast, payload)
}

// GetData polls one channel of one device and scales the reading by the
// descriptor's gain and offset.
func (b *Broker) GetData(device *Device, ch *Channel) (*Sample, error) {
	payload := []byte{byte(ch.Kind), ch.Flags, ch.Index}
	if err := b.request(device.Addr, CmdGetData, ControlRequest, payload); err != nil {
		return nil, err
	}
	resp, err := b.awaitResponse(device.Addr, CmdGetData)
	if err != nil {
		return nil, err
	}
	sample, err := DecodeSample(resp.Payload, ch)
	if err != nil {
		return nil, err
	}
	sample.Addr = device.Addr
	return sample, nil
}

// awaitResponse reads until a response matching the addressed device and
// command arrives. Stale frames from a previous exchange are skipped.
func (b *Broker) awaitResponse(addr uint16, cmd Command) (*Response, error) {
	for {
		resp, err := b.rx.Next()
		if err != nil {
			return nil, err
		}
		if resp.Src != addr || resp.Cmd != cmd {
			klog.V(2).InfoS("Skipped unrelated response", "src", resp.Src, "cmd", resp.Cmd,
				"wantSrc", addr, "wantCmd", cmd)
			continue
		}
		return resp, nil
	}
}
