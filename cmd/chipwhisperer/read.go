package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// hexLineWidth is the number of bytes rendered per output line.
const hexLineWidth = 32

func newReadCmd() *cobra.Command {
	var (
		flagAddr   string
		flagLength int
		flagOut    string
		flagHex    bool
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a region of the SPI flash",
		Long:  "Reads length bytes starting at the given address. The data is written as a binary file with --out, otherwise it is printed as hex.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, err := parseAddress(flagAddr)
			if err != nil {
				return err
			}

			prog := newProgrammer()
			if err := prog.Connect(ctx); err != nil {
				return err
			}
			defer prog.Disconnect()

			encoded, err := prog.ReadData(ctx, addr, flagLength, progressPrinter(cmd.ErrOrStderr(), "Reading"))
			if err != nil {
				return err
			}

			if flagOut != "" {
				data, err := hex.DecodeString(encoded)
				if err != nil {
					return errors.Wrap(err, "decode read data")
				}
				if err := os.WriteFile(flagOut, data, 0o644); err != nil {
					return errors.Wrap(err, "write output file")
				}
				log.Info().Str("path", flagOut).Int("bytes", len(data)).Msg("flash contents saved")
			}
			if flagOut == "" || flagHex {
				fmt.Fprint(cmd.OutOrStdout(), formatHex(encoded))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Start address, decimal or 0x-prefixed hex")
	cmd.Flags().IntVar(&flagLength, "length", 0, "Number of bytes to read")
	cmd.Flags().StringVar(&flagOut, "out", "", "Write the data to this file instead of printing hex")
	cmd.Flags().BoolVar(&flagHex, "hex", false, "Print hex even when --out is given")
	_ = cmd.MarkFlagRequired("addr")
	_ = cmd.MarkFlagRequired("length")

	return cmd
}

// formatHex breaks a hex string into lines of hexLineWidth bytes. The result
// ends with a newline unless the input is empty.
func formatHex(encoded string) string {
	const lineChars = hexLineWidth * 2
	out := make([]byte, 0, len(encoded)+len(encoded)/lineChars+1)
	for len(encoded) > lineChars {
		out = append(out, encoded[:lineChars]...)
		out = append(out, '\n')
		encoded = encoded[lineChars:]
	}
	if len(encoded) > 0 {
		out = append(out, encoded...)
		out = append(out, '\n')
	}
	return string(out)
}
