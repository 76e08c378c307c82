package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
)

const maxResponseBytes = 4 << 20

// Transport delivers one API call: params, plus a SubmittedPayment when
// payment is not nil.
type Transport interface {
	Post(ctx context.Context, url string, params string, payment []byte) (*Response, error)
}

// HTTPTransport posts multipart/form-data to the gateway.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) Post(ctx context.Context, url string, params string, payment []byte) (*Response, error) {
	body, contentType, err := encodeMultipart(params, payment)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, gate.NewErr(gate.BadRequest, "request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", gate.PaymentRequestContentType+", application/json")
	res, err := t.client.Do(req)
	if err != nil {
		return nil, gate.NewErr(gate.NotAvailable, "POST %s: %v", url, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, gate.NewErr(gate.NotAvailable, "reading response: %v", err)
	}
	return &Response{
		Status:      res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Body:        b,
		AckMemo:     res.Header.Get(gate.PaymentAckHeader),
	}, nil
}

func encodeMultipart(params string, payment []byte) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField("request", params); err != nil {
		return nil, "", err
	}
	if payment != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="payment"`)
		h.Set("Content-Type", gate.PaymentContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(payment); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipart: %v", err)
	}
	return buf, w.FormDataContentType(), nil
}
