package modbusgw

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/models"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/sirupsen/logrus"
)

// Reading is the payload published to MQTT for one polled target.
type Reading struct {
	DeviceID     string   `json:"device_id"`
	RegisterType string   `json:"register_type"`
	Address      int      `json:"address"`
	Count        int      `json:"count"`
	Values       []uint16 `json:"values"`
	Timestamp    float64  `json:"timestamp"`
}

// Publisher is a fire-and-forget MQTT publisher: publish calls never block
// the poller on broker availability, and failures are logged, not
// returned, because a missed publish should never stall the polling
// cycle. It is a no-op when neither an external broker nor the embedded
// broker is available.
type Publisher struct {
	client      paho.Client
	local       *mochi.Server
	topicPrefix string
	enabled     bool
	log         logrus.FieldLogger
}

// NewPublisher builds a Publisher from config. When cfg.MQTTEnabled() is
// false, the returned Publisher discards Publish calls until
// AttachLocalBroker wires it to the embedded broker as a fallback sink.
func NewPublisher(cfg *config.Config, log logrus.FieldLogger) *Publisher {
	log = log.WithField("component", "mqtt_publisher")

	if !cfg.MQTTEnabled() {
		return &Publisher{enabled: false, topicPrefix: cfg.MQTT.TopicPrefix, log: log}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.BrokerHost, cfg.MQTT.BrokerPort))
	opts.SetClientID("modbusgw-publisher")
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("connected to mqtt broker")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.WithError(err).Warn("mqtt connection lost, reconnecting")
	})

	return &Publisher{
		client:      paho.NewClient(opts),
		topicPrefix: cfg.MQTT.TopicPrefix,
		enabled:     true,
		log:         log,
	}
}

// AttachLocalBroker wires the embedded mochi-mqtt broker in as the
// publish sink used when no external broker was configured, so readings
// are still observable on the loopback listener instead of silently
// dropped.
func (p *Publisher) AttachLocalBroker(server *mochi.Server) {
	if p.client != nil {
		return
	}
	p.local = server
	p.enabled = true
}

// Start connects to the broker. No-op when disabled.
func (p *Publisher) Start() error {
	if !p.enabled {
		return nil
	}
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return newDependencyErr(token.Error(), "connect mqtt publisher")
	}
	return nil
}

// Stop disconnects from the broker. No-op when disabled.
func (p *Publisher) Stop() {
	if p.enabled && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Publish publishes one reading at <prefix>/<device_id>/<register_type>/<address>.
// Publish failures are logged and otherwise swallowed: the poll cycle that
// produced this reading has already succeeded and cached it, and MQTT
// delivery is a side effect, not the primary output.
func (p *Publisher) Publish(deviceID string, regType models.RegType, address int, values []uint16) {
	if !p.enabled {
		return
	}

	reading := Reading{
		DeviceID:     deviceID,
		RegisterType: string(regType),
		Address:      address,
		Count:        len(values),
		Values:       values,
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		p.log.WithError(err).Error("marshal mqtt payload failed")
		return
	}

	topic := fmt.Sprintf("%s/%s/%s/%d", p.topicPrefix, deviceID, regType, address)

	if p.client != nil {
		token := p.client.Publish(topic, 0, false, payload)
		go func() {
			if token.Wait() && token.Error() != nil {
				p.log.WithError(token.Error()).WithField("topic", topic).Warn("mqtt publish failed")
			}
		}()
	}

	if p.local != nil {
		if err := p.local.Publish(topic, payload, false, 0); err != nil {
			p.log.WithError(err).WithField("topic", topic).Warn("embedded mqtt publish failed")
		}
	}
}
