package zdo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shimmeringbee/zigbee"
	"github.com/supby/zbinder/internal/utils"
)

const (
	BindRequest         zigbee.ClusterID = 0x0021
	UnbindRequest       zigbee.ClusterID = 0x0022
	BindingTableRequest zigbee.ClusterID = 0x0033

	responseClusterMinimum zigbee.ClusterID = 0x8000
)

// Endpoint is the ZDO endpoint used for both source and destination of
// device management frames.
const Endpoint zigbee.Endpoint = 0x00

type Status uint8

const (
	StatusSuccess   Status = 0x00
	StatusNoEntry   Status = 0x88
	StatusTableFull Status = 0x8C
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNoEntry:
		return "NO_ENTRY"
	case StatusTableFull:
		return "TABLE_FULL"
	default:
		return fmt.Sprintf("0x%02x", uint8(s))
	}
}

type AddressMode uint8

const (
	AddressModeGroup    AddressMode = 0x01
	AddressModeExtended AddressMode = 0x03
)

var ErrLength = errors.New("bind request length error")

// Bind_req / Unbind_req layout:
//
//	seq | src IEEE | src ep | cluster | mode | group (2) or dst IEEE (8) + dst ep
//	 1  |    8     |   1    |    2    |  1   |
const (
	minRequestLength  = 15
	addressModeOffset = 12
	destinationOffset = 13
	ieeeAddressLength = 8
)

type BindRequestMessage struct {
	TransactionSequence    uint8
	SourceAddress          zigbee.IEEEAddress
	SourceEndpoint         zigbee.Endpoint
	ClusterID              zigbee.ClusterID
	DestinationAddressMode AddressMode
	DestinationGroup       uint16
	DestinationAddress     zigbee.IEEEAddress
	DestinationEndpoint    zigbee.Endpoint
}

// ParseBindUnbindRequest decodes the body of a Bind_req or Unbind_req.
func ParseBindUnbindRequest(data []byte) (BindRequestMessage, error) {
	var req BindRequestMessage

	if len(data) < minRequestLength {
		return req, fmt.Errorf("%w: %d bytes, need at least %d", ErrLength, len(data), minRequestLength)
	}

	req.TransactionSequence = data[0]
	req.SourceAddress = zigbee.IEEEAddress(utils.Btoi64(data[1 : 1+ieeeAddressLength]))
	req.SourceEndpoint = zigbee.Endpoint(data[9])
	req.ClusterID = zigbee.ClusterID(binary.LittleEndian.Uint16(data[10:12]))
	req.DestinationAddressMode = AddressMode(data[addressModeOffset])

	remaining := len(data) - destinationOffset

	switch {
	case req.DestinationAddressMode == AddressModeGroup:
		req.DestinationGroup = binary.LittleEndian.Uint16(data[destinationOffset : destinationOffset+2])
	case req.DestinationAddressMode == AddressModeExtended && remaining > ieeeAddressLength:
		req.DestinationAddress = zigbee.IEEEAddress(utils.Btoi64(data[destinationOffset : destinationOffset+ieeeAddressLength]))
		req.DestinationEndpoint = zigbee.Endpoint(data[destinationOffset+ieeeAddressLength])
	default:
		return BindRequestMessage{}, fmt.Errorf("%w: address mode %d with %d bytes", ErrLength, req.DestinationAddressMode, len(data))
	}

	return req, nil
}

// EncodeResponse builds the response body for a request received on
// requestCluster. Only Bind_req and Unbind_req produce a payload.
func EncodeResponse(requestCluster zigbee.ClusterID, status Status, transactionSequence uint8) []byte {
	switch requestCluster {
	case BindRequest, UnbindRequest:
		return []byte{transactionSequence, uint8(status), 0x00}
	default:
		return []byte{}
	}
}

func ResponseClusterID(requestCluster zigbee.ClusterID) zigbee.ClusterID {
	return requestCluster | responseClusterMinimum
}
