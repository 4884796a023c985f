package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/shimmeringbee/unpi"
	"github.com/shimmeringbee/unpi/broker"
	"github.com/shimmeringbee/unpi/library"
	"github.com/shimmeringbee/zigbee"
	"github.com/shimmeringbee/zstack"
	"github.com/supby/zbinder/internal/logger"
)

// The coprocessor answers ZDO requests addressed to it on its own. A host
// only sees them after ZDO_MSG_CB_REGISTER, as ZDO_MSG_CB_INCOMING, which
// zstack does not listen for.

type ZdoMsgCbRegister struct {
	ClusterID zigbee.ClusterID
}

const ZdoMsgCbRegisterID uint8 = 0x3e

type ZdoMsgCbRegisterReply zstack.GenericZStackStatus

const ZdoMsgCbRegisterReplyID uint8 = 0x3e

// ZdoMsgCbIncoming carries the request body without its transaction
// sequence, which arrives in Sequence.
type ZdoMsgCbIncoming struct {
	SourceAddress         zigbee.NetworkAddress
	WasBroadcast          bool
	ClusterID             zigbee.ClusterID
	SecurityUse           bool
	Sequence              uint8
	MacDestinationAddress zigbee.NetworkAddress
	Data                  []byte
}

const ZdoMsgCbIncomingID uint8 = 0xff

// Frame reconstructs the over-the-air request body.
func (m ZdoMsgCbIncoming) Frame() []byte {
	return append([]byte{m.Sequence}, m.Data...)
}

type zdoCallbacks struct {
	broker      *broker.Broker
	unsubscribe func()
	logger      logger.Logger
}

func newZDOCallbacks(rw io.ReadWriter, log logger.Logger) *zdoCallbacks {
	ml := library.NewLibrary()
	ml.Add(unpi.SREQ, unpi.ZDO, ZdoMsgCbRegisterID, ZdoMsgCbRegister{})
	ml.Add(unpi.SRSP, unpi.ZDO, ZdoMsgCbRegisterReplyID, ZdoMsgCbRegisterReply{})
	ml.Add(unpi.AREQ, unpi.ZDO, ZdoMsgCbIncomingID, ZdoMsgCbIncoming{})

	return &zdoCallbacks{
		broker:      broker.NewBroker(rw, rw, ml),
		unsubscribe: func() {},
		logger:      log,
	}
}

// Start begins reading frames and passes every ZDO_MSG_CB_INCOMING to
// callback on its own goroutine.
func (c *zdoCallbacks) Start(callback func(msg ZdoMsgCbIncoming)) error {
	c.broker.Start()

	err, unsubscribe := c.broker.Subscribe(&ZdoMsgCbIncoming{}, func(v interface{}) {
		callback(*v.(*ZdoMsgCbIncoming))
	})
	if err != nil {
		return err
	}

	c.unsubscribe = unsubscribe

	return nil
}

// Register asks the coprocessor to forward requests on the given clusters.
// Registrations are lost when the coprocessor resets.
func (c *zdoCallbacks) Register(ctx context.Context, clusters ...zigbee.ClusterID) error {
	for _, clusterID := range clusters {
		resp := ZdoMsgCbRegisterReply{}

		if err := c.broker.RequestResponse(ctx, ZdoMsgCbRegister{ClusterID: clusterID}, &resp); err != nil {
			return fmt.Errorf("registering ZDO callback 0x%04x: %w", uint16(clusterID), err)
		}

		if resp.Status != zstack.ZSuccess {
			return fmt.Errorf("registering ZDO callback 0x%04x: status 0x%02x", uint16(clusterID), uint8(resp.Status))
		}

		c.logger.Debug("Registered ZDO callback 0x%04x", uint16(clusterID))
	}

	return nil
}

func (c *zdoCallbacks) Stop() {
	c.unsubscribe()
	c.broker.Stop()
}
