package main

import (
	"net/http"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/core"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/dogecoin"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/dogecoinfoundation/paygate/pkg/metrics"
	"github.com/dogecoinfoundation/paygate/pkg/receivers"
	"github.com/dogecoinfoundation/paygate/pkg/store"
	"github.com/dogecoinfoundation/paygate/pkg/wallet"
	"github.com/dogecoinfoundation/paygate/pkg/webapi"
	"github.com/dogecoinfoundation/paygate/pkg/weather"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Server(conf gate.Config, log *logger.ZapLogger) error {
	defer log.Sync()

	if conf.Gateway.WatchingKey == "" {
		return gate.NewErr(gate.BadRequest, "no watching key: set gateway.watchingkey or WATCHING_KEY")
	}

	// Setup a Store; released after every service has stopped
	s, err := store.OpenStore(conf.Store.DBFile)
	if err != nil {
		return err
	}
	defer s.Close()

	// Set up the L1 used to relay payments
	var sender gate.Sender = core.NewDogecoinCoreRPC(conf, log)
	if useMockL1(conf) {
		log.Warn("mock L1: payments will not be relayed", nil)
		sender = dogecoin.NewL1Mock(&doge.DogeRegTestChain)
	}

	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
		conductor.WithLogger(log),
	)

	// The MessageBus starts first so it stops last
	bus := gate.NewMessageBus()
	c.Service("MessageBus", bus)

	// Set up all configured receivers
	receivers.SetUpReceivers(c, bus, conf, log)

	opts := []gate.Option{gate.WithLogger(log), gate.WithEvents(bus)}
	var metricsHandler http.Handler
	if conf.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := metrics.NewPrometheusRecorder(reg)
		if err != nil {
			return err
		}
		opts = append(opts, gate.WithMetrics(rec))
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	watching, err := wallet.NewWatchingWallet(conf.Gateway.WatchingKey, conf.Gateway.Network, s)
	if err != nil {
		return err
	}
	price, err := gate.NewPriceQuote(gate.Koinu(conf.Gateway.Price))
	if err != nil {
		return err
	}
	if conf.Gateway.MerchantSecret == "" {
		log.Warn("no merchant secret configured: challenges will not survive a restart", nil)
	}
	signer := gate.NewMerchantSigner(conf.Gateway.MerchantSecret)

	broadcaster := gate.NewPaymentBroadcaster(sender, conf.Gateway, opts...)
	c.Service("Broadcaster", broadcaster)

	gateway := gate.NewServerGateway(
		price,
		gate.NewPaymentRequestIssuer(watching, signer, conf.Gateway, opts...),
		gate.NewPaymentValidator(watching, signer, conf.Gateway, opts...),
		broadcaster,
		weather.NewForecastProvider(conf, log),
		conf.Gateway,
		opts...,
	)

	// Start the Payment API last so it stops first
	api, err := webapi.NewWebAPI(conf, gateway, metricsHandler, log)
	if err != nil {
		return err
	}
	c.Service("Payment API", api)

	bus.Send(gate.SYS_STARTUP, map[string]any{"network": conf.Gateway.Network, "price": conf.Gateway.Price})
	<-c.Start()
	return nil
}
