package poller

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"

	"swrgateway/pkg/swrnet"
)

type PublishData struct {
	Payload Payload `json:"payload"`
}

type Payload struct {
	Data []TimeSeriesData `json:"data"`
}

type TimeSeriesData struct {
	Timestamp string      `json:"timestamp"`
	Values    []PointData `json:"values"`
}

type PointData struct {
	DataPointId string      `json:"dataPointId"`
	Value       interface{} `json:"value"`
}

// Publisher mirrors each committed cycle row to an MQTT broker under
// data/<gatewayID>/v1/<addr>.
type Publisher struct {
	client    mqtt.Client
	gatewayID string
}

func NewPublisher(broker string, gatewayID string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("swr-poller-%s", gatewayID)).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &Publisher{client: client, gatewayID: gatewayID}, nil
}

func (p *Publisher) PublishCycle(device *swrnet.Device, stamp string, values map[string]float64) {
	points := make([]PointData, 0, len(values))
	for _, name := range MonitoredChannels {
		if v, ok := values[name]; ok {
			points = append(points, PointData{DataPointId: name, Value: v})
		}
	}
	data := PublishData{
		Payload: Payload{
			Data: []TimeSeriesData{{
				Timestamp: stamp,
				Values:    points,
			}},
		},
	}
	body, err := json.Marshal(data)
	if err != nil {
		klog.V(2).InfoS("Failed to marshal publish data", "addr", device.Addr, "err", err)
		return
	}
	topic := fmt.Sprintf("data/%s/v1/%d", p.gatewayID, device.Addr)
	token := p.client.Publish(topic, 1, false, body)
	if !token.WaitTimeout(mqttTimeout) || token.Error() != nil {
		klog.V(2).InfoS("Failed to publish cycle", "topic", topic, "err", token.Error())
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
