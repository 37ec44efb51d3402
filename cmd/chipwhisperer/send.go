package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/genregod/ChipWhisperer/pkg/serial"
)

func newSendCmd() *cobra.Command {
	var flagPort string

	cmd := &cobra.Command{
		Use:   "send TEXT...",
		Short: "Send one line to a serial device",
		Long:  "Connects to a serial port, writes the given text as a single newline-terminated line and disconnects.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tr := serial.NewTransport()
			if err := tr.Connect(ctx, resolvePortName(flagPort)); err != nil {
				return err
			}
			defer func() {
				if err := tr.Disconnect(); err != nil && !errors.Is(err, serial.ErrNotConnected) {
					log.Warn().Err(err).Msg("serial disconnect failed")
				}
			}()

			text := strings.Join(args, " ")
			if err := tr.Write(text); err != nil {
				return err
			}
			log.Info().Str("port", tr.PortName()).Int("chars", len(text)).Msg("line sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagPort, "port", "", "Port name overriding $CHIPWHISPERER_SERIAL_PORT")

	return cmd
}
