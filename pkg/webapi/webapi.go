package webapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/julienschmidt/httprouter"
)

// Multipart part names of a POST /api request.
const (
	RequestPart = "request"
	PaymentPart = "payment"

	maxRequestBytes = 1 << 20
)

// WebAPI implements conductor.Service
type WebAPI struct {
	gateway *gate.ServerGateway
	config  gate.Config
	chain   *doge.ChainParams
	metrics http.Handler
	log     logger.Logger
}

// interface guard ensures WebAPI implements conductor.Service
var _ conductor.Service = WebAPI{}

// NewWebAPI serves gateway over HTTP. metrics may be nil, in which case
// /metrics is not mounted.
func NewWebAPI(config gate.Config, gateway *gate.ServerGateway, metrics http.Handler, log logger.Logger) (WebAPI, error) {
	chain, err := doge.ChainFromNetwork(config.Gateway.Network)
	if err != nil {
		return WebAPI{}, gate.NewErr(gate.BadRequest, "webapi: %v", err)
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return WebAPI{gateway: gateway, config: config, chain: chain, metrics: metrics, log: log}, nil
}

func (t WebAPI) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		addr := t.config.WebAPI.Bind + ":" + t.config.WebAPI.Port
		server := &http.Server{Addr: addr, Handler: t.Handler()}
		t.log.Info("API listening", map[string]any{"addr": addr})
		go func() {
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				t.log.Error("HTTP server ListenAndServe", map[string]any{"err": err.Error()})
			}
		}()

		started <- true
		ctx := <-stop
		server.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}

// Handler returns the routes wrapped in request logging.
func (t WebAPI) Handler() http.Handler {
	return logRequests(t.log, t.createRouter())
}

func (t WebAPI) createRouter() *httprouter.Router {
	mux := httprouter.New()

	// GET / -> liveness
	mux.GET("/", t.hello)

	// POST multipart{request, payment?} /api -> 402 payment request | 200 resource
	mux.POST("/api", t.callAPI)

	// GET /pay/:address/qr.png?amount=koinu -> QR code of a dogecoin: URI
	mux.GET("/pay/:address/qr.png", t.getPaymentQR)

	if t.metrics != nil {
		mux.Handler(http.MethodGet, "/metrics", t.metrics)
	}
	return mux
}

func (t WebAPI) hello(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("hello"))
}

func (t WebAPI) callAPI(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		t.sendErrorResponse(w, http.StatusUnprocessableEntity, gate.MalformedRequest, fmt.Sprintf("expected multipart/form-data: %v", err))
		return
	}
	params, payment, err := readParts(mr)
	if err != nil {
		t.sendErrorResponse(w, http.StatusUnprocessableEntity, gate.MalformedRequest, err.Error())
		return
	}
	if params == nil {
		t.sendErrorResponse(w, http.StatusUnprocessableEntity, gate.MalformedRequest, "missing 'request' part")
		return
	}

	outcome, err := t.gateway.Handle(r.Context(), gate.GatewayRequest{
		Params:  strings.TrimSpace(string(params)),
		Payment: payment,
		URL:     t.paymentURL(r),
	})
	if err != nil {
		t.sendError(w, "Handle", err)
		return
	}

	switch o := outcome.(type) {
	case gate.ChallengeOutcome:
		h := w.Header()
		h.Set("Content-Type", gate.PaymentRequestContentType)
		h.Set("Cache-Control", "no-cache, no-store")
		h.Set("Expires", "0")
		h.Set("Content-Transfer-Encoding", "binary")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write(o.Body)
	case gate.FulfilledOutcome:
		h := w.Header()
		h.Set("Content-Type", "application/json")
		h.Set("Cache-Control", "no-store")
		h.Set(gate.PaymentAckHeader, o.AckMemo)
		w.WriteHeader(http.StatusOK)
		w.Write(o.Body)
	case gate.RejectedOutcome:
		t.sendErrorResponse(w, HttpStatusForError(o.Code), o.Code, o.Message)
	default:
		t.sendErrorResponse(w, http.StatusInternalServerError, gate.UnknownError, fmt.Sprintf("unexpected outcome %T", outcome))
	}
}

// readParts collects the request part and the optional payment part.
// Unknown parts are skipped.
func readParts(mr *multipart.Reader) (params []byte, payment []byte, err error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return params, payment, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("bad multipart body: %v", err)
		}
		switch part.FormName() {
		case RequestPart:
			params, err = io.ReadAll(part)
		case PaymentPart:
			payment, err = io.ReadAll(part)
		}
		part.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("reading part: %v", err)
		}
	}
}

// paymentURL is where the client should send its payment: this same
// endpoint, under RootURL when configured.
func (t WebAPI) paymentURL(r *http.Request) string {
	if root := t.config.WebAPI.RootURL; root != "" {
		return strings.TrimSuffix(root, "/") + r.URL.Path
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}

func (t WebAPI) getPaymentQR(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	address := gate.Address(p.ByName("address"))
	if !doge.ValidateP2PKH(address, t.chain) {
		t.sendBadRequest(w, fmt.Sprintf("not a %s P2PKH address: %s", t.config.Gateway.Network, address))
		return
	}
	amount := t.gateway.Price().Amount()
	if s := r.URL.Query().Get("amount"); s != "" {
		k, err := strconv.ParseInt(s, 10, 64)
		if err != nil || k < 0 {
			t.sendBadRequest(w, fmt.Sprintf("invalid amount (koinu): %s", s))
			return
		}
		amount = gate.Koinu(k)
	}
	fg := r.URL.Query().Get("fg")
	bg := r.URL.Query().Get("bg")
	uri := fmt.Sprintf("dogecoin:%s?amount=%s", address, amount.Doge().String())
	qr, err := GenerateQRCodePNG(uri, 256, fg, bg)
	if err != nil {
		t.sendError(w, "GenerateQRCodePNG", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=31536000, immutable")
	w.Write(qr)
}
