package receivers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

type sinkRecorder struct {
	mu   sync.Mutex
	sent []gate.EventType
}

func (s *sinkRecorder) Send(t gate.EventType, msg any, msgID ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, t)
	return nil
}

func (s *sinkRecorder) count() int {
	return len(s.list())
}

func (s *sinkRecorder) list() []gate.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gate.EventType(nil), s.sent...)
}

func message(t gate.EventType, event string, id string) gate.Message {
	return gate.Message{EventType: t, Type: t.Type(), Event: event, Message: json.RawMessage(`{"price":10000}`), ID: id}
}

func run(t *testing.T, svc conductor.Service) {
	started, stopped, stop := make(chan bool, 1), make(chan bool, 1), make(chan context.Context, 1)
	if err := svc.Run(started, stopped, stop); err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-started
	t.Cleanup(func() {
		stop <- context.Background()
		<-stopped
	})
}

func TestMessageLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	l := NewMessageLogger(path)
	run(t, l)
	l.Rec <- message(gate.PAY_ACCEPTED, "ACCEPTED", "challenge-1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, _ := os.ReadFile(path)
		if strings.Contains(string(b), `PAY:ACCEPTED (challenge-1): {"price":10000}`) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("message never reached %s", path)
}

func TestCallbackSignedAndRetried(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	bodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		first := attempts == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		ts := r.Header.Get(TimestampHeader)
		if r.Header.Get(SignatureHeader) != "sha256="+generateSha256HMAC(ts, body, "s3cret") {
			t.Errorf("bad signature header %q", r.Header.Get(SignatureHeader))
		}
		bodies <- string(body)
	}))
	defer server.Close()

	bus := &sinkRecorder{}
	s := NewCallbackSender(gate.CallbackConfig{Path: server.URL, HMACSecret: "s3cret"}, bus, logger.NoopLogger{})
	s.initialDelay = 5 * time.Millisecond
	run(t, s)
	s.Rec <- message(gate.TX_BROADCAST_FAILED, "BROADCAST_FAILED", "m1")

	select {
	case body := <-bodies:
		var got gate.Message
		if err := json.Unmarshal([]byte(body), &got); err != nil || got.Event != "BROADCAST_FAILED" || got.ID != "m1" {
			t.Fatalf("unexpected callback body %s (%v)", body, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback was not retried")
	}
	if bus.count() != 0 {
		t.Errorf("successful delivery reported an error")
	}
}

func TestCallbackGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	bus := &sinkRecorder{}
	s := NewCallbackSender(gate.CallbackConfig{Path: server.URL}, bus, logger.NoopLogger{})
	s.maxRetries = 2
	s.initialDelay = time.Millisecond
	run(t, s)
	s.Rec <- message(gate.PAY_EXPIRED, "EXPIRED", "m2")

	deadline := time.Now().Add(2 * time.Second)
	for bus.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sent := bus.list(); len(sent) != 1 || sent[0] != gate.SYS_ERR {
		t.Fatalf("expected one SYS_ERR, got %v", sent)
	}
}

func TestTopicsFor(t *testing.T) {
	queues := map[string]gate.MQTTQueueConfig{
		"all":  {TopicFilter: "paygate/all", Types: []string{"ALL"}},
		"pay":  {TopicFilter: "paygate/pay", Types: []string{"PAY"}},
		"errs": {TopicFilter: "paygate/sys", Types: []string{"SYS"}},
	}
	got := topicsFor(queues, message(gate.PAY_ACCEPTED, "ACCEPTED", ""))
	if len(got) != 2 {
		t.Errorf("PAY went to %v", got)
	}
	got = topicsFor(queues, message(gate.SYS_ERR, "ERR", ""))
	if len(got) != 1 || got[0] != "paygate/sys" {
		t.Errorf("SYS went to %v", got)
	}
}

func TestParseTypes(t *testing.T) {
	types := parseTypes("test", []string{"PAY", "BOGUS", "TX"}, logger.NoopLogger{})
	if len(types) != 2 || types[0].Type() != "PAY" || types[1].Type() != "TX" {
		t.Fatalf("unexpected types %v", types)
	}
}

func TestSetUpReceiversRegisters(t *testing.T) {
	conf := gate.TestConfig()
	conf.Loggers = map[string]gate.LoggerConfig{"main": {Path: filepath.Join(t.TempDir(), "l.log"), Types: []string{"ALL"}}}
	conf.Callbacks = map[string]gate.CallbackConfig{"hook": {Path: "http://localhost:1/hook", Types: []string{"PAY"}}}
	bus := gate.NewMessageBus()
	cond := conductor.NewConductor()
	SetUpReceivers(cond, bus, conf, logger.NoopLogger{})

	done := cond.Start()
	cond.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("receivers did not stop")
	}
}
