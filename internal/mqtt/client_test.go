package mqtt

import (
	"io"
	"sync"
	"testing"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/supby/zbinder/internal/logger"
)

type fakeMessage struct {
	mqttlib.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

func newTestClient() *defaultMqttClient {
	return &defaultMqttClient{
		rootTopic: "zbinder",
		logger:    logger.New(io.Discard, "[test]", logger.LogLevelDebug),
	}
}

func TestMessageIsDeliveredRelativeToRoot(t *testing.T) {
	cl := newTestClient()

	type received struct {
		subTopic string
		message  []byte
	}
	ch := make(chan received, 1)
	cl.Subscribe(func(subTopic string, message []byte) {
		ch <- received{subTopic, message}
	})

	cl.onMessageReceived(nil, &fakeMessage{topic: "zbinder/gateway/get_bindings", payload: []byte("{}")})

	select {
	case r := <-ch:
		assert.Equal(t, "gateway/get_bindings", r.subTopic)
		assert.Equal(t, []byte("{}"), r.message)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMessageAfterUnSubscribeIsDropped(t *testing.T) {
	cl := newTestClient()

	called := make(chan struct{}, 1)
	cl.Subscribe(func(subTopic string, message []byte) {
		called <- struct{}{}
	})
	cl.UnSubscribe()

	cl.onMessageReceived(nil, &fakeMessage{topic: "zbinder/gateway/get_bindings"})

	select {
	case <-called:
		t.Fatal("callback called after UnSubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeWhileMessagesArrive(t *testing.T) {
	cl := newTestClient()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cl.Subscribe(func(subTopic string, message []byte) {})
		}()
		go func() {
			defer wg.Done()
			cl.onMessageReceived(nil, &fakeMessage{topic: "zbinder/gateway/get_bindings"})
		}()
	}
	wg.Wait()
}
