package mqtt

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/supby/zbinder/internal/configuration"
	"github.com/supby/zbinder/internal/logger"
)

type MqttClient interface {
	Dispose()
	Publish(subTopic string, data []byte)
	Subscribe(callback func(subTopic string, message []byte))
	UnSubscribe()
}

// NewClient connects to the broker and subscribes to the gateway topics under
// the configured root topic. Callbacks receive topics relative to the root.
func NewClient(config *configuration.MqttConfiguration, l logger.Logger) (MqttClient, func(), error) {
	retClient := defaultMqttClient{
		rootTopic: config.RootTopic,
		logger:    l.WithPrefix("[MQTT Client]"),
	}

	mqttlib.ERROR = newStdLogger(retClient.logger)

	opts := mqttlib.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", config.Address, config.Port))
	opts.SetClientID(config.RootTopic)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.AutoReconnect = true
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetWill(fmt.Sprintf("%v/gateway/status", config.RootTopic), "Offline", 0, true)
	opts.OnConnect = func(client mqttlib.Client) {
		retClient.logger.Info("Connected")
	}
	opts.OnConnectionLost = func(client mqttlib.Client, err error) {
		retClient.logger.Warn("Connect lost: %v", err)
	}

	innerClient := mqttlib.NewClient(opts)

	if token := innerClient.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, token.Error()
	}

	if token := innerClient.Subscribe(fmt.Sprintf("%s/gateway/#", config.RootTopic), 0, retClient.onMessageReceived); token.Wait() && token.Error() != nil {
		innerClient.Disconnect(0)
		return nil, nil, token.Error()
	}

	retClient.logger.Info("Connected to MQTT on '%v:%v'", config.Address, config.Port)
	innerClient.Publish(fmt.Sprintf("%v/gateway/status", config.RootTopic), 0, true, "Online")

	retClient.innerClient = innerClient

	return &retClient, func() { retClient.Dispose() }, nil
}

type defaultMqttClient struct {
	innerClient     mqttlib.Client
	callbackMu      sync.RWMutex
	messageCallback func(subTopic string, message []byte)
	rootTopic       string
	logger          logger.Logger
}

func (cl *defaultMqttClient) Dispose() {
	cl.logger.Info("Disposing MQTT client")
	cl.innerClient.Publish(fmt.Sprintf("%v/gateway/status", cl.rootTopic), 0, true, "Offline").Wait()
	cl.innerClient.Disconnect(250)
}

func (cl *defaultMqttClient) Publish(subTopic string, data []byte) {
	cl.innerClient.Publish(fmt.Sprintf("%v/%v", cl.rootTopic, subTopic), 0, false, data)
}

func (cl *defaultMqttClient) Subscribe(callback func(subTopic string, message []byte)) {
	cl.callbackMu.Lock()
	defer cl.callbackMu.Unlock()

	cl.messageCallback = callback
}

func (cl *defaultMqttClient) UnSubscribe() {
	cl.callbackMu.Lock()
	defer cl.callbackMu.Unlock()

	cl.messageCallback = nil
}

func (cl *defaultMqttClient) onMessageReceived(client mqttlib.Client, msg mqttlib.Message) {
	subTopic := strings.TrimPrefix(msg.Topic(), cl.rootTopic+"/")
	message := msg.Payload()

	cl.callbackMu.RLock()
	callback := cl.messageCallback
	cl.callbackMu.RUnlock()

	if callback != nil {
		go callback(subTopic, message)
	}
}

func newStdLogger(l logger.Logger) *log.Logger {
	return log.New(l.GetWriter(), "[MQTT Client] ", 0)
}
