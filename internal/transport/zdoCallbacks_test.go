package transport

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shimmeringbee/bytecodec"
	"github.com/shimmeringbee/unpi"
	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supby/zbinder/internal/logger"
	"github.com/supby/zbinder/internal/zdo"
)

// fakePort is the host end of a pair of pipes to a simulated coprocessor.
type fakePort struct {
	fromDevice *io.PipeReader
	toDevice   *io.PipeWriter
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.fromDevice.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.toDevice.Write(b) }

func (p *fakePort) Close() error {
	p.fromDevice.Close()
	return p.toDevice.Close()
}

type fakeDevice struct {
	fromHost *io.PipeReader
	toHost   *io.PipeWriter
}

func newFakePortAndDevice() (*fakePort, *fakeDevice) {
	hostR, deviceW := io.Pipe()
	deviceR, hostW := io.Pipe()

	return &fakePort{fromDevice: hostR, toDevice: hostW}, &fakeDevice{fromHost: deviceR, toHost: deviceW}
}

// answerRegistrations acknowledges every ZDO_MSG_CB_REGISTER and reports the
// cluster it was for.
func (d *fakeDevice) answerRegistrations(registered chan<- zigbee.ClusterID) {
	for {
		frame, err := unpi.Read(d.fromHost)
		if err != nil {
			return
		}

		if frame.MessageType != unpi.SREQ || frame.Subsystem != unpi.ZDO || frame.CommandID != ZdoMsgCbRegisterID {
			continue
		}

		req := ZdoMsgCbRegister{}
		if err := bytecodec.Unmarshal(frame.Payload, &req); err != nil {
			return
		}
		registered <- req.ClusterID

		unpi.Write(d.toHost, unpi.Frame{
			MessageType: unpi.SRSP,
			Subsystem:   unpi.ZDO,
			CommandID:   ZdoMsgCbRegisterReplyID,
			Payload:     []byte{0x00},
		})
	}
}

func TestSharedPortCopiesToEverySide(t *testing.T) {
	port, device := newFakePortAndDevice()

	shared := newSharedPort(port)
	first := shared.Side()
	second := shared.Side()
	shared.Start()
	defer shared.Close()

	sent := []byte{0xfe, 0x01, 0x45, 0xc0, 0x09, 0x8d}
	go device.toHost.Write(sent)

	for _, side := range []io.Reader{first, second} {
		buf := make([]byte, len(sent))
		_, err := io.ReadFull(side, buf)
		require.NoError(t, err)
		assert.Equal(t, sent, buf)
	}

	go func() {
		second.Write([]byte{0x01, 0x02})
	}()
	buf := make([]byte, 2)
	_, err := io.ReadFull(device.fromHost, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, buf)
}

func TestZDOCallbacksRegisterAndReceiveBindRequest(t *testing.T) {
	port, device := newFakePortAndDevice()

	shared := newSharedPort(port)
	stackSide := shared.Side()
	callbacks := newZDOCallbacks(shared.Side(), logger.New(io.Discard, "[test]", logger.LogLevelDebug))
	shared.Start()
	defer shared.Close()

	go io.Copy(io.Discard, stackSide)

	registered := make(chan zigbee.ClusterID, len(zdoCallbackClusters))
	go device.answerRegistrations(registered)

	received := make(chan ZdoMsgCbIncoming, 1)
	require.NoError(t, callbacks.Start(func(msg ZdoMsgCbIncoming) {
		received <- msg
	}))
	defer callbacks.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, callbacks.Register(ctx, zdoCallbackClusters...))
	for _, clusterID := range zdoCallbackClusters {
		assert.Equal(t, clusterID, <-registered)
	}

	payload, err := bytecodec.Marshal(ZdoMsgCbIncoming{
		SourceAddress: 0x1234,
		ClusterID:     zdo.BindRequest,
		Sequence:      bindRequest[0],
		Data:          bindRequest[1:],
	})
	require.NoError(t, err)
	assert.Len(t, payload, 9+len(bindRequest)-1)

	go unpi.Write(device.toHost, unpi.Frame{
		MessageType: unpi.AREQ,
		Subsystem:   unpi.ZDO,
		CommandID:   ZdoMsgCbIncomingID,
		Payload:     payload,
	})

	select {
	case msg := <-received:
		assert.Equal(t, zigbee.NetworkAddress(0x1234), msg.SourceAddress)
		assert.Equal(t, zdo.BindRequest, msg.ClusterID)
		assert.Equal(t, bindRequest, msg.Frame())
	case <-time.After(5 * time.Second):
		t.Fatal("ZDO callback not delivered")
	}
}
