package main

import (
	"context"
	"fmt"
	"os"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/client"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/core"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/dogecoin"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/dogecoinfoundation/paygate/pkg/receivers"
	"github.com/dogecoinfoundation/paygate/pkg/store"
	"github.com/dogecoinfoundation/paygate/pkg/wallet"
	"github.com/spf13/cobra"
)

/*
	The client commands pay for API calls from a local spending wallet.
	The wallet learns about funds only through `client watch`, which
	follows Dogecoin Core's ZMQ feed.
*/

type clientEnv struct {
	wallet *wallet.SpendingWallet
	store  store.SQLStore
	log    *logger.ZapLogger
}

func (e clientEnv) Close() {
	e.store.Close()
	e.log.Sync()
}

// newClientL1 signs with libdogecoin and relays through Core, or is the
// pure-Go mock on regtest.
func newClientL1(conf gate.Config, log logger.Logger) (gate.L1, error) {
	if useMockL1(conf) {
		return dogecoin.NewL1Mock(&doge.DogeRegTestChain), nil
	}
	return dogecoin.NewL1Libdogecoin(core.NewDogecoinCoreRPC(conf, log))
}

func openClient(conf gate.Config) (clientEnv, error) {
	log := newLogger(conf)
	if conf.Client.Privkey == "" {
		return clientEnv{}, gate.NewErr(gate.BadRequest, "no client key: set client.privkey or CLIENT_KEY (see `paygate client keygen`)")
	}
	l1, err := newClientL1(conf, log)
	if err != nil {
		return clientEnv{}, err
	}
	s, err := store.OpenStore(conf.Client.DBFile)
	if err != nil {
		return clientEnv{}, err
	}
	w, err := wallet.NewSpendingWallet(gate.Privkey(conf.Client.Privkey), conf.Gateway.Network, gate.Koinu(conf.Client.MaxFee), l1, s, log)
	if err != nil {
		s.Close()
		return clientEnv{}, err
	}
	return clientEnv{wallet: w, store: s, log: log}, nil
}

func clientCommands(config *gate.Config) *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Pay for API calls from a local wallet",
	}

	requestCmd := &cobra.Command{
		Use:   "request <lat,lng>",
		Short: "Call the API, paying if asked to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(*config)
			if err != nil {
				return err
			}
			defer env.Close()
			timeout := time.Duration(config.Client.TimeoutSec) * time.Second
			flow := client.NewFlow(env.wallet, client.NewHTTPTransport(timeout), config.Gateway.Network, config.Client, env.log)
			ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
			defer cancel()

			res, err := flow.Request(ctx, config.Client.Server, args[0])
			if gate.IsError(err, gate.InsufficientFunds) {
				if addr, aerr := env.wallet.ReceiveAddress(); aerr == nil {
					fmt.Fprintf(os.Stderr, "fund this wallet by sending DOGE to %s\n", addr)
				}
			}
			if err != nil {
				return err
			}
			if res.Paid > 0 {
				fmt.Fprintf(os.Stderr, "paid %s in %s (%s)\n", res.Paid, res.TxID, res.AckMemo)
			}
			if res.Status != 200 {
				fmt.Fprintf(os.Stderr, "server answered %d\n", res.Status)
			}
			fmt.Println(string(res.Body))
			return nil
		},
	}

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "Print a fresh address to fund the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(*config)
			if err != nil {
				return err
			}
			defer env.Close()
			addr, err := env.wallet.ReceiveAddress()
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the wallet's spendable balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(*config)
			if err != nil {
				return err
			}
			defer env.Close()
			balance, err := env.wallet.Balance()
			if err != nil {
				return err
			}
			fmt.Println(balance)
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow Dogecoin Core (ZMQ) and record funds paid to the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openClient(*config)
			if err != nil {
				return err
			}
			defer env.Close()

			c := conductor.NewConductor(conductor.HookSignals(), conductor.Noisy(), conductor.WithLogger(env.log))
			bus := gate.NewMessageBus()
			c.Service("MessageBus", bus)
			receivers.SetUpReceivers(c, bus, *config, env.log)
			c.Service("ZMQ Listener", core.NewCoreReceiver(bus, env.wallet, *config, env.log))
			<-c.Start()
			return nil
		},
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new client key for the configured network",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*config)
			defer log.Sync()
			l1, err := newClientL1(*config, log)
			if err != nil {
				return err
			}
			keys, err := wallet.GenerateKeys(l1, config.Gateway.Network)
			if err != nil {
				return err
			}
			fmt.Printf("privkey:  %s\nwatching: %s\naddress:  %s\n", keys.Privkey, keys.WatchingKey, keys.Address)
			return nil
		},
	}

	clientCmd.AddCommand(requestCmd, addressCmd, balanceCmd, watchCmd, keygenCmd)
	return clientCmd
}
