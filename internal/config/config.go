package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultAPIURL   = "https://api.etherscan.io/api"
	DefaultContract = "0x49cF6f5d44E70224e2E23fDcdd2C053F30aDA28B"

	SourceExplorer = "explorer"
	SourceRPC      = "rpc"
)

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	APIURL       string
	APIKey       string
	ChainID      uint64
	Contract     string
	Source       string
	RPCURL       string
	Interval     time.Duration
	BatchSize    uint64
	StartBlock   uint64
	TransferOnly bool
	AlertsOut    string
	MetricsAddr  string
	Interactive  bool
	HTTPTimeout  time.Duration
	LogLevel     string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v := newViper()

	v.SetDefault("api-url", DefaultAPIURL)
	v.SetDefault("contract", DefaultContract)
	v.SetDefault("source", SourceExplorer)
	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("batch-size", uint64(5000))
	v.SetDefault("transfer-only", false)
	v.SetDefault("interactive", false)
	v.SetDefault("http-timeout", 15*time.Second)
	v.SetDefault("log-level", "info")

	if err := readLayers(v, cfgFile, flags); err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		APIURL:       v.GetString("api-url"),
		APIKey:       v.GetString("api-key"),
		ChainID:      v.GetUint64("chain-id"),
		Contract:     strings.TrimSpace(v.GetString("contract")),
		Source:       strings.ToLower(strings.TrimSpace(v.GetString("source"))),
		RPCURL:       v.GetString("rpc"),
		Interval:     v.GetDuration("interval"),
		BatchSize:    v.GetUint64("batch-size"),
		StartBlock:   v.GetUint64("start-block"),
		TransferOnly: v.GetBool("transfer-only"),
		AlertsOut:    v.GetString("alerts-out"),
		MetricsAddr:  v.GetString("metrics-addr"),
		Interactive:  v.GetBool("interactive"),
		HTTPTimeout:  v.GetDuration("http-timeout"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("NFTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func readLayers(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
