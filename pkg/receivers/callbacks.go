package receivers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

const (
	SignatureHeader = "X-Paygate-Signature"
	TimestampHeader = "X-Paygate-Timestamp"
)

func NewCallbackSender(config gate.CallbackConfig, bus gate.EventSink, log logger.Logger) CallbackSender {
	return CallbackSender{
		Rec:          make(chan gate.Message, 1000),
		Path:         config.Path,
		HMACSecret:   config.HMACSecret,
		Bus:          bus,
		log:          log,
		client:       &http.Client{Timeout: 30 * time.Second},
		maxRetries:   6,
		initialDelay: 1 * time.Second,
		maxDelay:     32 * time.Second,
	}
}

// CallbackSender POSTs each message as JSON to Path, retrying with
// exponential backoff. Messages are delivered one at a time, in order.
type CallbackSender struct {
	// incomming msgs
	Rec        chan gate.Message
	Path       string
	HMACSecret string
	Bus        gate.EventSink

	log          logger.Logger
	client       *http.Client
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// Implements gate.MessageSubscriber
func (s CallbackSender) GetChan() chan gate.Message {
	return s.Rec
}

// Implements conductor.Service
func (s CallbackSender) Run(started, stopped chan bool, stop chan context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				cancel()
				stopped <- true
				return
			case msg := <-s.Rec:
				// post in the background so stop is still seen during retries
				done := make(chan error, 1)
				go func() { done <- s.postWithRetry(ctx, msg) }()
				select {
				case err := <-done:
					if err != nil && msg.Type != "SYS" {
						s.Bus.Send(gate.SYS_ERR, fmt.Sprintf("CallbackSender: %s: %v", s.Path, err))
					}
				case <-stop:
					cancel()
					stopped <- true
					return
				}
			}
		}
	}()
	return nil
}

// Reads config and sets up any configured callbacks
func SetupCallbacks(cond *conductor.Conductor, bus Bus, conf gate.Config, log logger.Logger) {
	for name, c := range conf.Callbacks {
		s := NewCallbackSender(c, bus, log)
		cond.Service(fmt.Sprintf("Callback sender for: %s", c.Path), s)
		bus.Register(s, parseTypes("callback "+name, c.Types, log)...)
	}
}

func generateSha256HMAC(timestamp string, payload []byte, secret string) string {
	if secret == "" {
		return ""
	}

	dataToSign := []byte(fmt.Sprintf("%s.%s", timestamp, string(payload)))
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(dataToSign)

	return hex.EncodeToString(h.Sum(nil))
}

func (s CallbackSender) postWithRetry(ctx context.Context, msg gate.Message) error {
	objJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	delay := s.initialDelay
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.post(ctx, objJSON)
		if err == nil {
			s.log.Debug("callback delivered", map[string]any{"path": s.Path, "id": msg.ID})
			return nil
		}
		s.log.Warn("callback failed", map[string]any{"path": s.Path, "attempt": attempt + 1, "retry_in": delay.String(), "err": err.Error()})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		// Increase delay exponentially, with a maximum limit
		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
	return fmt.Errorf("request failed after %d attempts: %v", s.maxRetries+1, err)
}

func (s CallbackSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.HMACSecret != "" {
		timestampStr := fmt.Sprintf("%d", time.Now().Unix())
		signature := generateSha256HMAC(timestampStr, body, s.HMACSecret)
		req.Header.Set(SignatureHeader, fmt.Sprintf("sha256=%s", signature))
		req.Header.Set(TimestampHeader, timestampStr)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
