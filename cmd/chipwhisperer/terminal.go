package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/genregod/ChipWhisperer/pkg/serial"
)

func newTerminalCmd() *cobra.Command {
	var flagPort string

	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Open an interactive serial console",
		Long:  "Connects to a serial port at 115200 baud and bridges it to the terminal. Received data is printed as it arrives; typed lines are sent to the device. Exit with Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			tr := serial.NewTransport()
			tr.On(serial.EventData, func(ev serial.Event) {
				fmt.Fprint(out, ev.Message)
			})
			tr.On(serial.EventError, func(ev serial.Event) {
				log.Error().Msg(ev.Message)
			})
			tr.On(serial.EventConnect, func(ev serial.Event) {
				log.Info().Msg(ev.Message)
			})
			tr.On(serial.EventDisconnect, func(ev serial.Event) {
				log.Info().Msg(ev.Message)
			})

			if err := tr.Connect(ctx, resolvePortName(flagPort)); err != nil {
				return err
			}
			defer func() {
				if err := tr.Disconnect(); err != nil && !errors.Is(err, serial.ErrNotConnected) {
					log.Warn().Err(err).Msg("serial disconnect failed")
				}
			}()

			lines := readLines(cmd.InOrStdin())
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if err := tr.Write(line); err != nil {
						if errors.Is(err, serial.ErrNotConnected) {
							log.Warn().Msg("serial stream closed")
							return nil
						}
						return err
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&flagPort, "port", "", "Port name overriding $CHIPWHISPERER_SERIAL_PORT")

	return cmd
}

// readLines pumps lines typed on r into the returned channel and closes it
// on EOF. The goroutine leaks if the reader never ends, which is acceptable
// for stdin in a command that exits right after.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
