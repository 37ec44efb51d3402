package main

import (
	"os"

	"github.com/genregod/ChipWhisperer/internal/env"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	envLogLevel          = "CHIPWHISPERER_LOG_LEVEL"
	envSerialPort        = "CHIPWHISPERER_SERIAL_PORT"
	envPageDelay         = "CHIPWHISPERER_PAGE_DELAY"
	envEraseRampInterval = "CHIPWHISPERER_ERASE_RAMP_INTERVAL"
)

var rootCmd = &cobra.Command{
	Use:   "chipwhisperer",
	Short: "Debug console for SPI flash programmers and serial devices",
	Long: `chipwhisperer drives a CH341A-class USB programmer to identify, read, write
and erase SPI flash chips, talks to serial devices such as ESP32 and Arduino
boards, and keeps detected chips in a local SQLite library.`,
}

var (
	rootVerbose bool
	rootDB      string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging overriding $CHIPWHISPERER_LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&rootDB, "db", "", "Chip library path overriding $CHIPWHISPERER_DB_PATH")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		applyLogLevel(rootVerbose)
	}
	rootCmd.AddCommand(
		newDetectCmd(),
		newReadCmd(),
		newWriteCmd(),
		newEraseCmd(),
		newPortsCmd(),
		newTerminalCmd(),
		newSendCmd(),
		newChipsCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("chipwhisperer command failed")
	}
}
