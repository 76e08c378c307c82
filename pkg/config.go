package gate

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/configor"
)

type Config struct {
	Gateway GatewayConfig

	WebAPI struct {
		Bind    string `default:""`
		Port    string `default:"4567" env:"PORT"`
		RootURL string // public URL prefix used in QR links, defaults to the request host
	}

	// info for connecting to dogecoin-core daemon
	Core struct {
		RPCHost string `default:"localhost"`
		RPCPort int    `default:"18332"`
		RPCUser string `default:"paygate"`
		RPCPass string `default:"paygate"`
		ZMQHost string `default:"localhost"`
		ZMQPort int    `default:"28332"`
	}

	Store struct {
		DBFile string `default:"paygate.db"` // sqlite file, or a postgres:// DSN
	}

	Weather struct {
		APIKey     string `env:"FORECASTIO_KEY"`
		BaseURL    string `default:"https://api.forecast.io"`
		TimeoutSec int    `default:"10" validate:"gt=0"`
	}

	Client ClientConfig

	Log struct {
		Level string `default:"info" validate:"oneof=debug info warn error"`
		File  string // rotate into this file instead of stderr
	}

	Metrics struct {
		Enabled bool `default:"true"`
	}

	// Bus receivers, keyed by name.
	Loggers   map[string]LoggerConfig
	Callbacks map[string]CallbackConfig
	MQTT      MQTTConfig
}

type GatewayConfig struct {
	Network             string `default:"regtest" env:"DOGE_NETWORK" validate:"oneof=mainnet testnet regtest"`
	Price               int64  `default:"10000" env:"PRICE" validate:"gte=0"`
	WatchingKey         string `env:"WATCHING_KEY"`
	MerchantSecret      string // HMAC key for merchant data; random per process when empty
	ChallengeTimeoutSec int    `default:"600" validate:"gt=0"`
	Memo                string `default:"API call payment is required"`
	AckMemo             string `default:"thanks"`
	BroadcastWorkers    int    `default:"2" validate:"gte=1"`
	BroadcastQueue      int    `default:"100" validate:"gte=1"`
}

type ClientConfig struct {
	Server     string `default:"http://localhost:4567/api" validate:"url"`
	Privkey    string `env:"CLIENT_KEY"` // bip32 extended private key
	DBFile     string `default:"paygate-client.db"`
	MaxFee     int64  `default:"100000000" validate:"gt=0"`
	Memo       string
	TimeoutSec int `default:"30" validate:"gt=0"`
}

type LoggerConfig struct {
	Path  string
	Types []string
}

type CallbackConfig struct {
	Path       string
	Types      []string
	HMACSecret string
}

type MQTTConfig struct {
	Address  string
	Username string
	Password string
	ClientID string
	Queues   map[string]MQTTQueueConfig
}

type MQTTQueueConfig struct {
	TopicFilter string
	Types       []string
}

func (c GatewayConfig) ChallengeTimeout() time.Duration {
	return time.Duration(c.ChallengeTimeoutSec) * time.Second
}

// LoadConfig applies defaults, then any config files that exist, then
// environment overrides, and validates the result.
func LoadConfig(files ...string) (Config, error) {
	c := Config{}
	err := configor.New(&configor.Config{ENVPrefix: "PAYGATE"}).Load(&c, files...)
	if err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return NewErr(BadRequest, "invalid config: %v", err)
	}
	return nil
}

// TestConfig returns a regtest config suitable for unit tests.
func TestConfig() Config {
	c := Config{}
	c.Gateway = GatewayConfig{
		Network:             "regtest",
		Price:               10_000,
		MerchantSecret:      "test-secret",
		ChallengeTimeoutSec: 600,
		Memo:                "API call payment is required",
		AckMemo:             "thanks",
		BroadcastWorkers:    1,
		BroadcastQueue:      10,
	}
	c.WebAPI.Port = "4567"
	c.Store.DBFile = ":memory:"
	c.Weather.BaseURL = "http://localhost"
	c.Weather.TimeoutSec = 5
	c.Client = ClientConfig{Server: "http://localhost:4567/api", DBFile: ":memory:", MaxFee: 100_000_000, TimeoutSec: 5}
	c.Log.Level = "debug"
	return c
}
