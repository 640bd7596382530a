package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/infra/logger"
)

type mockToken struct{ err error }

func (m *mockToken) Wait() bool                     { return true }
func (m *mockToken) WaitTimeout(time.Duration) bool { return true }
func (m *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *mockToken) Error() error { return m.err }

type mockClient struct {
	connectErr   error
	subscribeErr error
	connected    bool
	disconnected bool
	topic        string
	callback     paho.MessageHandler
}

func (m *mockClient) IsConnected() bool      { return m.connected }
func (m *mockClient) IsConnectionOpen() bool { return m.connected }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr == nil {
		m.connected = true
	}
	return &mockToken{err: m.connectErr}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true; m.connected = false }
func (m *mockClient) Publish(string, byte, bool, interface{}) paho.Token {
	return &mockToken{}
}
func (m *mockClient) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	m.topic = topic
	m.callback = cb
	return &mockToken{err: m.subscribeErr}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &mockToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token     { return &mockToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler) {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 1 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

func withMockClient(t *testing.T, cli *mockClient) {
	t.Helper()
	orig := newClient
	newClient = func(*paho.ClientOptions) paho.Client { return cli }
	t.Cleanup(func() { newClient = orig })
}

func testConfig() Config {
	return Config{Broker: "tcp://localhost:1883", ClientID: "test", Topic: "site/emergency"}
}

func TestNewIngressSubscribes(t *testing.T) {
	cli := &mockClient{}
	withMockClient(t, cli)

	var got []model.Task
	ing, err := NewIngress(testConfig(), logger.NopLogger{}, func(t model.Task) {
		got = append(got, t)
	})
	if err != nil {
		t.Fatalf("new ingress: %v", err)
	}
	if cli.topic != "site/emergency" {
		t.Fatalf("subscribed to %q", cli.topic)
	}

	cli.callback(cli, &mockMessage{
		topic: "site/emergency",
		payload: []byte(`{
			"system": "Struct", "duration_hours": 3, "criticality": 10,
			"demand": [0, 1], "x": 5, "note": "crane boom failure"
		}`),
	})
	if len(got) != 1 {
		t.Fatalf("handler ran %d times", len(got))
	}
	task := got[0]
	if !task.Urgent || task.Criticality != 10 || task.DurationHours != 3 {
		t.Fatalf("decoded task %+v", task)
	}
	if task.System != model.SystemStruct || task.Remarks != "crane boom failure" {
		t.Fatalf("decoded task %+v", task)
	}

	ing.Close()
	if !cli.disconnected {
		t.Fatalf("close did not disconnect")
	}
}

func TestIngressIgnoresBadReports(t *testing.T) {
	cli := &mockClient{}
	withMockClient(t, cli)

	calls := 0
	if _, err := NewIngress(testConfig(), logger.NopLogger{}, func(model.Task) { calls++ }); err != nil {
		t.Fatalf("new ingress: %v", err)
	}
	for _, payload := range []string{
		`{broken`,
		`{"system": "Roof", "duration_hours": 1}`,
		`{"system": "Elec", "duration_hours": 0}`,
	} {
		cli.callback(cli, &mockMessage{topic: "site/emergency", payload: []byte(payload)})
	}
	if calls != 0 {
		t.Fatalf("handler ran on bad input %d times", calls)
	}
}

func TestIngressRPNFallback(t *testing.T) {
	rep := emergencyReport{System: "Facade", Duration: 2, Severity: 9, Occurrence: 9, Detection: 9}
	task, err := rep.toTask()
	if err != nil {
		t.Fatalf("to task: %v", err)
	}
	if task.Criticality != 7 {
		t.Fatalf("criticality %d, want floor(729/100)=7", task.Criticality)
	}
}

func TestNewIngressErrors(t *testing.T) {
	if _, err := NewIngress(Config{}, logger.NopLogger{}, nil); err == nil {
		t.Fatalf("empty config accepted")
	}
	cli := &mockClient{connectErr: errors.New("broker down")}
	withMockClient(t, cli)
	if _, err := NewIngress(testConfig(), logger.NopLogger{}, nil); err == nil {
		t.Fatalf("connect failure swallowed")
	}
}
