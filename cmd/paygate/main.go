package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var config gate.Config

	// define root command
	rootCmd := &cobra.Command{
		Use:   "paygate",
		Short: "Pay-per-call HTTP API gateway settled in Dogecoin",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := LoadConfig()
			if err != nil {
				return err
			}
			config = c
			applyFlags(&config)
			return config.Validate()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}

	// Flags override the config file and environment
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (toml, yaml or json)")
	flags.String("network", "", "Dogecoin network: mainnet, testnet or regtest")
	flags.Int64("price", 0, "Price of one API call in koinu")
	flags.String("watching-key", "", "Extended public key that receives payments")
	flags.String("webapi-port", "", "Web API port")
	flags.String("webapi-bind", "", "Web API bind")
	flags.String("store-db-file", "", "Store DB file or postgres:// DSN")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Bool("mock-l1", false, "Build and sign in Go and never relay (regtest only)")
	// Bind flags to config fields
	viper.BindPFlags(flags)

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the PayGate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Server(config, newLogger(config))
		},
	}

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Run: func(cmd *cobra.Command, args []string) {
			o, _ := json.MarshalIndent(config, ">", " ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(clientCommands(&config))

	// Execute the Cobra command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// LoadConfig reads the first config file found (named by --config,
// PAYGATE_ENV, or config.toml in the usual places) over the defaults,
// then applies PAYGATE_* environment overrides.
func LoadConfig() (gate.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return gate.LoadConfig(path)
	}
	name := "config"
	if env, set := os.LookupEnv("PAYGATE_ENV"); set {
		name = env
	}
	home, _ := os.UserHomeDir()
	for _, dir := range []string{".", "/etc/paygate", filepath.Join(home, ".paygate")} {
		for _, ext := range []string{".toml", ".yaml", ".yml", ".json"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return gate.LoadConfig(path)
			}
		}
	}
	return gate.LoadConfig()
}

func applyFlags(c *gate.Config) {
	if viper.IsSet("network") {
		c.Gateway.Network = viper.GetString("network")
	}
	if viper.IsSet("price") {
		c.Gateway.Price = viper.GetInt64("price")
	}
	if viper.IsSet("watching-key") {
		c.Gateway.WatchingKey = viper.GetString("watching-key")
	}
	if viper.IsSet("webapi-port") {
		c.WebAPI.Port = viper.GetString("webapi-port")
	}
	if viper.IsSet("webapi-bind") {
		c.WebAPI.Bind = viper.GetString("webapi-bind")
	}
	if viper.IsSet("store-db-file") {
		c.Store.DBFile = viper.GetString("store-db-file")
	}
	if viper.IsSet("log-level") {
		c.Log.Level = viper.GetString("log-level")
	}
}

func newLogger(c gate.Config) *logger.ZapLogger {
	return logger.NewZapLogger(c.Log.Level, c.Log.File)
}

func useMockL1(c gate.Config) bool {
	return viper.GetBool("mock-l1") && c.Gateway.Network == "regtest"
}
