package transport

import (
	"context"
	"time"

	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zcl/commands/global"
	"github.com/shimmeringbee/zigbee"
	"github.com/shimmeringbee/zstack"
	"github.com/supby/zbinder/internal/configuration"
	"github.com/supby/zbinder/internal/logger"
	"github.com/supby/zbinder/internal/router"
	"github.com/supby/zbinder/internal/zdo"
	"go.bug.st/serial.v1"
)

type Transport interface {
	StartAsync(ctx context.Context) error
	Stop()
	SendResponse(ctx context.Context, resp router.Response) error
}

// stack is the part of *zstack.ZStack used after initialisation.
type stack interface {
	ReadEvent(ctx context.Context) (interface{}, error)
	SendApplicationMessageToNode(ctx context.Context, destinationAddress zigbee.IEEEAddress, message zigbee.ApplicationMessage, requireAck bool) error
	ResolveNodeIEEEAddress(ctx context.Context, address zigbee.NetworkAddress) (zigbee.IEEEAddress, error)
	Stop()
}

// ZDO requests forwarded by the coprocessor to the host.
var zdoCallbackClusters = []zigbee.ClusterID{zdo.BindRequest, zdo.UnbindRequest, zdo.BindingTableRequest}

const resolveTimeout = 10 * time.Second

type zigbeeTransport struct {
	stack              stack
	port               *sharedPort
	callbacks          *zdoCallbacks
	configuration      *configuration.Configuration
	zdoRouter          router.ZDORouter
	zclCommandRegistry *zcl.CommandRegistry
	logger             logger.Logger
}

func NewTransport(cfg *configuration.Configuration, zdoRouter router.ZDORouter, log logger.Logger) Transport {
	zclCommandRegistry := zcl.NewCommandRegistry()
	global.Register(zclCommandRegistry)

	return &zigbeeTransport{
		configuration:      cfg,
		zdoRouter:          zdoRouter,
		zclCommandRegistry: zclCommandRegistry,
		logger:             log.WithPrefix("[Zigbee Transport]"),
	}
}

func (t *zigbeeTransport) StartAsync(ctx context.Context) error {
	z, err := t.initZStack(ctx)
	if err != nil {
		return err
	}

	t.stack = z

	registerCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := t.callbacks.Register(registerCtx, zdoCallbackClusters...); err != nil {
		t.Stop()
		return err
	}

	go t.startEventLoop(ctx)

	return nil
}

func (t *zigbeeTransport) Stop() {
	if t.stack != nil {
		t.stack.Stop()
	}

	t.closePort()
}

func (t *zigbeeTransport) closePort() {
	if t.callbacks != nil {
		t.callbacks.Stop()
		t.callbacks = nil
	}

	if t.port != nil {
		t.port.Close()
		t.port = nil
	}
}

// SendResponse sends a ZDO response to the requester from the ZDO endpoint.
func (t *zigbeeTransport) SendResponse(ctx context.Context, resp router.Response) error {
	if t.stack == nil || len(resp.Payload) == 0 {
		return nil
	}

	msg := zigbee.ApplicationMessage{
		ClusterID:           resp.ClusterID,
		SourceEndpoint:      zdo.Endpoint,
		DestinationEndpoint: zdo.Endpoint,
		Data:                resp.Payload,
	}

	return t.stack.SendApplicationMessageToNode(ctx, resp.Destination, msg, false)
}

func (t *zigbeeTransport) initZStack(ctx context.Context) (*zstack.ZStack, error) {
	initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	networkKey, err := t.configuration.ZNetworkConfiguration.Key()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: int(t.configuration.SerialConfiguration.BaudRate),
	}

	port, err := serial.Open(t.configuration.SerialConfiguration.PortName, mode)
	if err != nil {
		return nil, err
	}
	port.SetRTS(true)

	t.port = newSharedPort(port)
	stackSide := t.port.Side()
	t.callbacks = newZDOCallbacks(t.port.Side(), t.logger)
	t.port.Start()

	if err := t.callbacks.Start(func(msg ZdoMsgCbIncoming) {
		t.processZDOCallback(ctx, msg)
	}); err != nil {
		t.closePort()
		return nil, err
	}

	z := zstack.New(stackSide, zstack.NewNodeTable())

	netCfg := zigbee.NetworkConfiguration{
		PANID:         zigbee.PANID(t.configuration.ZNetworkConfiguration.PANID),
		ExtendedPANID: zigbee.ExtendedPANID(t.configuration.ZNetworkConfiguration.ExtendedPANID),
		NetworkKey:    networkKey,
		Channel:       t.configuration.ZNetworkConfiguration.Channel,
	}

	if err := z.Initialise(initCtx, netCfg); err != nil {
		z.Stop()
		t.closePort()
		return nil, err
	}

	if t.configuration.PermitJoin {
		if err := z.PermitJoin(initCtx, true); err != nil {
			t.logger.Warn("Error permit join: %v", err)
		}
	} else {
		if err := z.DenyJoin(initCtx); err != nil {
			t.logger.Warn("Error deny join: %v", err)
		}
	}

	if err := z.RegisterAdapterEndpoint(
		initCtx,
		zigbee.Endpoint(0x01),
		zigbee.ProfileHomeAutomation,
		1,
		1,
		[]zigbee.ClusterID{},
		[]zigbee.ClusterID{}); err != nil {
		z.Stop()
		t.closePort()
		return nil, err
	}

	t.logger.Info("Adapter initialised on %v", t.configuration.SerialConfiguration.PortName)

	return z, nil
}

func (t *zigbeeTransport) startEventLoop(ctx context.Context) {
	t.logger.Info("Start event loop")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, err := t.stack.ReadEvent(ctx)
		if err != nil {
			t.logger.Warn("Error read event: %v", err)
			continue
		}

		t.handleEvent(event)
	}
}

func (t *zigbeeTransport) handleEvent(event interface{}) {
	switch e := event.(type) {
	case zigbee.NodeJoinEvent:
		t.logger.Info("Node join: 0x%016x", uint64(e.IEEEAddress))
	case zigbee.NodeLeaveEvent:
		t.logger.Info("Node leave: 0x%016x", uint64(e.IEEEAddress))
	case zigbee.NodeIncomingMessageEvent:
		t.processIncomingMessage(e.IncomingMessage)
	}
}

func (t *zigbeeTransport) processIncomingMessage(msg zigbee.IncomingMessage) {
	appMsg := msg.ApplicationMessage

	if appMsg.DestinationEndpoint == zdo.Endpoint {
		if t.zdoRouter.HandleRequest(msg.SourceAddress.IEEEAddress, appMsg.ClusterID, appMsg.Data) {
			return
		}
	}

	message, err := t.zclCommandRegistry.Unmarshal(appMsg)
	if err != nil {
		t.logger.Debug("Unhandled message on cluster 0x%04x from 0x%016x", uint16(appMsg.ClusterID), uint64(msg.SourceAddress.IEEEAddress))
		return
	}

	t.logger.Debug("Unhandled command of type (%T) on cluster 0x%04x from 0x%016x", message.Command, uint16(appMsg.ClusterID), uint64(msg.SourceAddress.IEEEAddress))
}

// processZDOCallback routes a ZDO request forwarded by the coprocessor. The
// sender is only known by network address.
func (t *zigbeeTransport) processZDOCallback(ctx context.Context, msg ZdoMsgCbIncoming) {
	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	sender, err := t.stack.ResolveNodeIEEEAddress(resolveCtx, msg.SourceAddress)
	if err != nil {
		t.logger.Warn("Unable to resolve sender 0x%04x of ZDO request 0x%04x: %v", uint16(msg.SourceAddress), uint16(msg.ClusterID), err)
		return
	}

	if !t.zdoRouter.HandleRequest(sender, msg.ClusterID, msg.Frame()) {
		t.logger.Debug("Unhandled ZDO request 0x%04x from 0x%016x", uint16(msg.ClusterID), uint64(sender))
	}
}
