package router

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shimmeringbee/zigbee"
	"github.com/supby/zbinder/internal/bindingtable"
	"github.com/supby/zbinder/internal/logger"
	"github.com/supby/zbinder/internal/mqtt"
	"github.com/supby/zbinder/internal/zcldef"
)

const (
	MQTT_GATEWAY         = "gateway"
	MQTT_GET_BINDINGS    = "get_bindings"
	MQTT_SET_BINDING     = "set_binding"
	MQTT_DELETE_BINDING  = "delete_binding"
	MQTT_RESET_BINDINGS  = "reset_bindings"
	MQTT_BINDINGS        = "bindings"
	MQTT_BINDING_RESULT  = "binding_result"
	MQTT_BINDING_CHANGED = "binding_changed"
)

type mqttRouter struct {
	mqttClient    mqtt.MqttClient
	table         bindingtable.BindingTable
	zclDefService zcldef.ZCLDefService
	logger        logger.Logger
}

func NewMQTTRouter(
	mqttClient mqtt.MqttClient,
	table bindingtable.BindingTable,
	zclDefService zcldef.ZCLDefService,
	log logger.Logger) MQTTRouter {
	ret := mqttRouter{
		mqttClient:    mqttClient,
		table:         table,
		zclDefService: zclDefService,
		logger:        log.WithPrefix("[MQTT Router]"),
	}

	mqttClient.Subscribe(ret.mqttMessage)

	return &ret
}

func (h *mqttRouter) PublishBindings() {
	entries := h.table.Entries()

	indexes := make([]int, 0, len(entries))
	for i := range entries {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	msg := mqtt.BindingsMessage{
		Capacity: bindingtable.Capacity,
		Count:    len(entries),
		Bindings: make([]mqtt.BindingMessage, 0, len(entries)),
	}
	for _, i := range indexes {
		msg.Bindings = append(msg.Bindings, h.toBindingMessage(i, entries[i]))
	}

	h.publish(MQTT_BINDINGS, msg)
}

func (h *mqttRouter) PublishBindingChange(ch bindingtable.Change) {
	msg := mqtt.BindingChangedMessage{
		Operation: ch.Op.String(),
	}

	if ch.Op != bindingtable.ChangeReset {
		b := h.toBindingMessage(ch.Index, ch.Entry)
		msg.Binding = &b
	}

	h.publish(MQTT_BINDING_CHANGED, msg)
}

func (h *mqttRouter) mqttMessage(subTopic string, message []byte) {
	topicParts := strings.Split(subTopic, "/")
	if len(topicParts) != 2 || topicParts[0] != MQTT_GATEWAY {
		return
	}

	switch topicParts[1] {
	case MQTT_GET_BINDINGS:
		h.PublishBindings()
	case MQTT_SET_BINDING:
		h.handleBindingCommand(MQTT_SET_BINDING, message, h.table.Insert)
	case MQTT_DELETE_BINDING:
		h.handleBindingCommand(MQTT_DELETE_BINDING, message, h.table.Delete)
	case MQTT_RESET_BINDINGS:
		h.logger.Info("Resetting binding table")
		h.table.Reset()
	}
}

func (h *mqttRouter) handleBindingCommand(operation string, message []byte, apply func(e bindingtable.Entry) error) {
	result := mqtt.BindingResultMessage{
		Operation: operation,
	}

	var devMsg mqtt.BindingMessage
	err := json.Unmarshal(message, &devMsg)
	if err == nil {
		result.Binding = devMsg

		var entry bindingtable.Entry
		entry, err = fromBindingMessage(devMsg)
		if err == nil {
			err = apply(entry)
		}
	}

	if err != nil {
		h.logger.Warn("%v failed: %v", operation, err)
		result.Error = err.Error()
	} else {
		h.logger.Info("%v succeeded: %+v", operation, devMsg)
		result.Success = true
	}

	h.publish(MQTT_BINDING_RESULT, result)
}

func (h *mqttRouter) publish(topic string, msg interface{}) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error Marshal %T: %v", msg, err)
		return
	}

	h.mqttClient.Publish(fmt.Sprintf("%v/%v", MQTT_GATEWAY, topic), jsonData)
}

func (h *mqttRouter) toBindingMessage(index int, e bindingtable.Entry) mqtt.BindingMessage {
	ret := mqtt.BindingMessage{
		Index:          index,
		Type:           e.Type.String(),
		LocalEndpoint:  uint8(e.Local),
		RemoteEndpoint: uint8(e.Remote),
		ClusterID:      uint16(e.ClusterID),
		ClusterName:    h.zclDefService.ClusterName(uint16(e.ClusterID)),
	}

	switch e.Type {
	case bindingtable.Unicast:
		ret.IEEEAddress = uint64(e.IEEEAddress())
	case bindingtable.Multicast:
		ret.GroupID = e.GroupID()
	}

	return ret
}

// fromBindingMessage rejects address fields that do not apply to the binding
// type, so a successful result echoes exactly what was stored.
func fromBindingMessage(msg mqtt.BindingMessage) (bindingtable.Entry, error) {
	switch msg.Type {
	case bindingtable.Unicast.String():
		if msg.GroupID != 0 {
			return bindingtable.Entry{}, fmt.Errorf("%w: GroupID on a unicast binding", bindingtable.ErrInvalidEntry)
		}
		return bindingtable.NewUnicastEntry(
			zigbee.Endpoint(msg.LocalEndpoint),
			zigbee.ClusterID(msg.ClusterID),
			zigbee.IEEEAddress(msg.IEEEAddress),
			zigbee.Endpoint(msg.RemoteEndpoint)), nil
	case bindingtable.Multicast.String():
		if msg.RemoteEndpoint != 0 || msg.IEEEAddress != 0 {
			return bindingtable.Entry{}, fmt.Errorf("%w: RemoteEndpoint or IEEEAddress on a multicast binding", bindingtable.ErrInvalidEntry)
		}
		return bindingtable.NewMulticastEntry(
			zigbee.Endpoint(msg.LocalEndpoint),
			zigbee.ClusterID(msg.ClusterID),
			msg.GroupID), nil
	default:
		return bindingtable.Entry{}, fmt.Errorf("%w: type %q", bindingtable.ErrInvalidEntry, msg.Type)
	}
}
