package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/chzchzchz/sweeprx/sweep"
)

// Publisher is the part of mqtt.Client the exporter uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

// MQTT publishes each window as JSON to <topic>/<center_hz>.
type MQTT struct {
	Client  Publisher
	Config  MQTTConfig
	ID      string
	Timeout time.Duration
}

// DialMQTT connects to the configured broker.
func DialMQTT(cfg MQTTConfig, id string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("sweeprx_" + id)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		glog.Warningf("mqtt: connection lost: %v", err)
	})
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	glog.Infof("mqtt: connected to %s", cfg.Broker)
	return client, nil
}

func (m *MQTT) Write(ctx context.Context, results <-chan sweep.WindowResult) error {
	timeout := m.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	for res := range results {
		data, err := json.Marshal(jsonResult{ID: m.ID, WindowResult: res})
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("%s/%d", m.Config.Topic, res.Window.Center)
		token := m.Client.Publish(topic, m.Config.QoS, m.Config.Retain, data)
		if !token.WaitTimeout(timeout) {
			glog.Warningf("mqtt: publish to %s timed out", topic)
		} else if err := token.Error(); err != nil {
			glog.Warningf("mqtt: publish to %s: %v", topic, err)
		}
	}
	return nil
}
