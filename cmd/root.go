package cmd

import (
	"os"
	"path/filepath"

	"github.com/fluxionwatt/modbusgw/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Used for flags.
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   version.ProgramName,
		Short: "A Modbus-to-MQTT gateway with a cached HTTP data plane",
		Long: `modbusgw polls a fleet of Modbus RTU/ASCII/TCP devices on a fixed
cadence, serves register reads through a TTL cache and a circuit breaker
per transport, and republishes every reading to MQTT.`,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $PWD/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug mode")

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func WorkDir() string {
	dir, _ := os.Getwd()
	return dir
}

func ExeDir() string {
	exe, _ := os.Executable()
	return filepath.Dir(exe)
}
