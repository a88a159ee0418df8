package plan

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockToken is an already-completed mqtt.Token.
type mockToken struct {
	err error
}

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Error() error                   { return t.err }

func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publishedMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// mockClient implements mqtt.Client and records what was published.
type mockClient struct {
	mu           sync.Mutex
	connected    bool
	publishError error
	published    []publishedMessage
	// gate, when set, holds every Publish until it is closed.
	gate         chan struct{}
}

func newMockClient(connected bool) *mockClient {
	return &mockClient{connected: connected}
}

func (c *mockClient) messages() []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishedMessage(nil), c.published...)
}

func (c *mockClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *mockClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *mockClient) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return &mockToken{}
}

func (c *mockClient) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return &mockToken{err: mqtt.ErrNotConnected}
	}
	if c.publishError != nil {
		return &mockToken{err: c.publishError}
	}
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, publishedMessage{Topic: topic, Payload: data, QoS: qos, Retain: retained})
	return &mockToken{}
}

func (c *mockClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) Unsubscribe(...string) mqtt.Token { return &mockToken{} }

func (c *mockClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *mockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}
