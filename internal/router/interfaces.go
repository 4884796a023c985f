package router

import (
	"github.com/shimmeringbee/zigbee"
	"github.com/supby/zbinder/internal/bindingtable"
)

type MQTTRouter interface {
	PublishBindings()
	PublishBindingChange(ch bindingtable.Change)
}

type ZDORouter interface {
	HandleRequest(sender zigbee.IEEEAddress, clusterID zigbee.ClusterID, data []byte) bool
	SubscribeOnResponse(callback func(resp Response))
}
