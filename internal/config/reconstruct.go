package config

import (
	"github.com/spf13/pflag"
)

// ReconstructConfig holds configuration for the reconstruct command.
type ReconstructConfig struct {
	In       string
	Out      string
	Contract string
	Sort     bool
	LogLevel string
}

// LoadReconstruct merges config file, environment variables, and flags into ReconstructConfig.
func LoadReconstruct(cfgFile string, flags *pflag.FlagSet) (ReconstructConfig, error) {
	v := newViper()

	v.SetDefault("sort", true)
	v.SetDefault("log-level", "info")

	if err := readLayers(v, cfgFile, flags); err != nil {
		return ReconstructConfig{}, err
	}

	return ReconstructConfig{
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Contract: v.GetString("contract"),
		Sort:     v.GetBool("sort"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
