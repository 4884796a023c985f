package zdo

import (
	"testing"

	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
)

var sourceIEEE = []byte{0x04, 0xae, 0x24, 0x07, 0x00, 0x4b, 0x12, 0x00}

func groupRequest() []byte {
	data := []byte{0x05}
	data = append(data, sourceIEEE...)
	return append(data, 0x01, 0x34, 0x12, 0x01, 0x78, 0x56)
}

func extendedRequest() []byte {
	data := []byte{0x09}
	data = append(data, sourceIEEE...)
	data = append(data, 0x02, 0x06, 0x00, 0x03)
	data = append(data, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11)
	return append(data, 0x0b)
}

func TestParseGroupRequest(t *testing.T) {
	data := groupRequest()
	assert.Len(t, data, 15)

	req, err := ParseBindUnbindRequest(data)
	assert.NoError(t, err)

	assert.Equal(t, uint8(5), req.TransactionSequence)
	assert.Equal(t, zigbee.IEEEAddress(0x00124b000724ae04), req.SourceAddress)
	assert.Equal(t, zigbee.Endpoint(1), req.SourceEndpoint)
	assert.Equal(t, zigbee.ClusterID(0x1234), req.ClusterID)
	assert.Equal(t, AddressModeGroup, req.DestinationAddressMode)
	assert.Equal(t, uint16(0x5678), req.DestinationGroup)
	assert.Equal(t, zigbee.Endpoint(0), req.DestinationEndpoint)
}

func TestParseShortRequest(t *testing.T) {
	_, err := ParseBindUnbindRequest(groupRequest()[:14])
	assert.ErrorIs(t, err, ErrLength)

	_, err = ParseBindUnbindRequest(nil)
	assert.ErrorIs(t, err, ErrLength)
}

func TestParseExtendedRequest(t *testing.T) {
	data := extendedRequest()
	assert.Len(t, data, 22)

	req, err := ParseBindUnbindRequest(data)
	assert.NoError(t, err)

	assert.Equal(t, uint8(9), req.TransactionSequence)
	assert.Equal(t, zigbee.Endpoint(2), req.SourceEndpoint)
	assert.Equal(t, zigbee.ClusterID(0x0006), req.ClusterID)
	assert.Equal(t, AddressModeExtended, req.DestinationAddressMode)
	assert.Equal(t, zigbee.IEEEAddress(0x1122334455667788), req.DestinationAddress)
	assert.Equal(t, zigbee.Endpoint(0x0b), req.DestinationEndpoint)
}

func TestParseExtendedRequestInsufficientTail(t *testing.T) {
	for _, n := range []int{20, 21} {
		_, err := ParseBindUnbindRequest(extendedRequest()[:n])
		assert.ErrorIs(t, err, ErrLength, "length %d", n)
	}
}

func TestParseUnknownAddressMode(t *testing.T) {
	data := extendedRequest()
	data[12] = 0x02

	_, err := ParseBindUnbindRequest(data)
	assert.ErrorIs(t, err, ErrLength)
}

func TestParseDoesNotModifyInput(t *testing.T) {
	data := extendedRequest()
	orig := append([]byte(nil), data...)

	_, err := ParseBindUnbindRequest(data)
	assert.NoError(t, err)
	assert.Equal(t, orig, data)
}

func TestEncodeResponse(t *testing.T) {
	assert.Equal(t, []byte{0x05, 0x00, 0x00}, EncodeResponse(BindRequest, StatusSuccess, 5))
	assert.Equal(t, []byte{0x06, 0x8c, 0x00}, EncodeResponse(BindRequest, StatusTableFull, 6))
	assert.Equal(t, []byte{0x07, 0x88, 0x00}, EncodeResponse(UnbindRequest, StatusNoEntry, 7))
	assert.Empty(t, EncodeResponse(BindingTableRequest, StatusSuccess, 8))
	assert.Empty(t, EncodeResponse(zigbee.ClusterID(0x0005), StatusSuccess, 9))
}

func TestEncodeResponseReturnsFreshBuffer(t *testing.T) {
	first := EncodeResponse(BindRequest, StatusSuccess, 1)
	second := EncodeResponse(UnbindRequest, StatusNoEntry, 2)

	assert.Equal(t, []byte{0x01, 0x00, 0x00}, first)
	assert.Equal(t, []byte{0x02, 0x88, 0x00}, second)
}

func TestResponseClusterID(t *testing.T) {
	assert.Equal(t, zigbee.ClusterID(0x8021), ResponseClusterID(BindRequest))
	assert.Equal(t, zigbee.ClusterID(0x8022), ResponseClusterID(UnbindRequest))
}
