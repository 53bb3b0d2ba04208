package soti

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectWait    = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

// MQTTSink publishes every record as JSON to <topic_prefix>/<kind>.
type MQTTSink struct {
	client mqtt.Client
	config MQTTConfig
	logger *log.Logger
}

func NewMQTTSink(config MQTTConfig, logger *log.Logger) (*MQTTSink, error) {
	var opts = mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT: connected to broker", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT: connection lost", "err", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		logger.Info("MQTT: attempting to reconnect")
	})

	var client = mqtt.NewClient(opts)
	// With connect retry the token only completes once connected.
	var token = client.Connect()
	if !token.WaitTimeout(mqttConnectWait) {
		logger.Warn("MQTT: broker not reachable yet, still trying", "broker", config.Broker)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", config.Broker, token.Error())
	}

	return &MQTTSink{client: client, config: config, logger: logger}, nil
}

func (s *MQTTSink) topic(kind RecordKind) string {
	return strings.TrimSuffix(s.config.TopicPrefix, "/") + "/" + string(kind)
}

func (s *MQTTSink) Emit(r Record) {
	var data, err = json.Marshal(r)
	if err != nil {
		s.logger.Error("MQTT: marshal record", "err", err)
		return
	}

	var topic = s.topic(r.Kind)
	var token = s.client.Publish(topic, s.config.QoS, s.config.Retain, data)

	// Don't hold up the decoder waiting on the broker.
	go func() {
		if !token.WaitTimeout(mqttPublishTimeout) {
			s.logger.Warn("MQTT: publish timed out", "topic", topic)
			return
		}
		if token.Error() != nil {
			s.logger.Warn("MQTT: publish failed", "topic", topic, "err", token.Error())
		}
	}()
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
