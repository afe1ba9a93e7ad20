package core

import (
	"fmt"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/sirupsen/logrus"
)

// ServerMQTT builds the supplemental embedded MQTT broker: a local
// mochi-mqtt instance on address, useful for operators who don't want to
// stand up an external broker just to watch poll results during
// evaluation. It accepts every connection; this is a development
// convenience, not a production broker, and is only started when
// mqtt.embed_broker is true in configuration.
func ServerMQTT(address string, mqttLogger *logrus.Logger) (*mqtt.Server, error) {
	server := mqtt.New(nil)

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add allow-all auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "modbusgw-embedded", Address: address})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add tcp listener %s: %w", address, err)
	}

	mqttLogger.WithField("address", address).Info("embedded mqtt broker configured")
	return server, nil
}
