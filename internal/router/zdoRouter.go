package router

import (
	"sync"

	"github.com/shimmeringbee/zigbee"
	"github.com/supby/zbinder/internal/bindingtable"
	"github.com/supby/zbinder/internal/logger"
	"github.com/supby/zbinder/internal/zdo"
)

// Response is a ZDO response ready to be sent back to the requester.
type Response struct {
	Destination zigbee.IEEEAddress
	ClusterID   zigbee.ClusterID
	Payload     []byte
}

type zdoRouter struct {
	table      bindingtable.BindingTable
	mu         sync.Mutex
	onResponse []func(resp Response)
	logger     logger.Logger
}

func NewZDORouter(table bindingtable.BindingTable, log logger.Logger) ZDORouter {
	return &zdoRouter{
		table:  table,
		logger: log.WithPrefix("[ZDO Router]"),
	}
}

func (r *zdoRouter) SubscribeOnResponse(callback func(resp Response)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onResponse = append(r.onResponse, callback)
}

// HandleRequest processes a ZDO request and reports whether it was handled.
// Undecodable Bind/Unbind requests are still reported as handled.
func (r *zdoRouter) HandleRequest(sender zigbee.IEEEAddress, clusterID zigbee.ClusterID, data []byte) bool {
	switch clusterID {
	case zdo.BindRequest:
		r.processBindRequest(sender, clusterID, data)
		return true
	case zdo.UnbindRequest:
		r.processUnbindRequest(sender, clusterID, data)
		return true
	case zdo.BindingTableRequest:
		r.logger.Debug("Binding table request from 0x%016x", uint64(sender))
		return true
	default:
		r.logger.Debug("Untracked ZDO 0x%04x from 0x%016x", uint16(clusterID), uint64(sender))
		return false
	}
}

func (r *zdoRouter) processBindRequest(sender zigbee.IEEEAddress, clusterID zigbee.ClusterID, data []byte) {
	req, entry, ok := r.parseRequest(sender, data)
	if !ok {
		return
	}

	status := zdo.StatusSuccess
	if err := r.table.Insert(entry); err != nil {
		r.logger.Warn("Bind of %v rejected: %v", entry, err)
		status = zdo.StatusTableFull
	} else {
		r.logger.Info("Bound %v", entry)
	}

	r.respond(sender, clusterID, status, req.TransactionSequence)
}

func (r *zdoRouter) processUnbindRequest(sender zigbee.IEEEAddress, clusterID zigbee.ClusterID, data []byte) {
	req, entry, ok := r.parseRequest(sender, data)
	if !ok {
		return
	}

	status := zdo.StatusSuccess
	if err := r.table.Delete(entry); err != nil {
		r.logger.Warn("Unbind of %v rejected: %v", entry, err)
		status = zdo.StatusNoEntry
	} else {
		r.logger.Info("Unbound %v", entry)
	}

	r.respond(sender, clusterID, status, req.TransactionSequence)
}

func (r *zdoRouter) parseRequest(sender zigbee.IEEEAddress, data []byte) (zdo.BindRequestMessage, bindingtable.Entry, bool) {
	req, err := zdo.ParseBindUnbindRequest(data)
	if err != nil {
		r.logger.Error("Error parsing request from 0x%016x: %v", uint64(sender), err)
		return req, bindingtable.Entry{}, false
	}

	return req, EntryFromRequest(req), true
}

func (r *zdoRouter) respond(sender zigbee.IEEEAddress, clusterID zigbee.ClusterID, status zdo.Status, seq uint8) {
	resp := Response{
		Destination: sender,
		ClusterID:   zdo.ResponseClusterID(clusterID),
		Payload:     zdo.EncodeResponse(clusterID, status, seq),
	}

	r.logger.Debug("Response 0x%04x to 0x%016x: %v", uint16(resp.ClusterID), uint64(sender), status)

	r.mu.Lock()
	callbacks := make([]func(resp Response), len(r.onResponse))
	copy(callbacks, r.onResponse)
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(resp)
	}
}

// EntryFromRequest builds the binding described by a decoded Bind/Unbind request.
func EntryFromRequest(req zdo.BindRequestMessage) bindingtable.Entry {
	if req.DestinationAddressMode == zdo.AddressModeGroup {
		return bindingtable.NewMulticastEntry(req.SourceEndpoint, req.ClusterID, req.DestinationGroup)
	}

	return bindingtable.NewUnicastEntry(req.SourceEndpoint, req.ClusterID, req.DestinationAddress, req.DestinationEndpoint)
}
