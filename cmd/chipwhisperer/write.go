package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWriteCmd() *cobra.Command {
	var (
		flagAddr   string
		flagIn     string
		flagVerify bool
	)

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a file to the SPI flash",
		Long:  "Programs the contents of a file into the flash starting at the given address. Pass --verify to read the region back and compare it against the file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, err := parseAddress(flagAddr)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(flagIn)
			if err != nil {
				return errors.Wrap(err, "read input file")
			}

			prog := newProgrammer()
			if err := prog.Connect(ctx); err != nil {
				return err
			}
			defer prog.Disconnect()

			if err := prog.WriteData(ctx, addr, data, progressPrinter(cmd.ErrOrStderr(), "Writing")); err != nil {
				return err
			}
			log.Info().Int("bytes", len(data)).Uint32("address", addr).Msg("write finished")

			if !flagVerify {
				return nil
			}
			encoded, err := prog.ReadData(ctx, addr, len(data), progressPrinter(cmd.ErrOrStderr(), "Verifying"))
			if err != nil {
				return errors.Wrap(err, "read back for verify")
			}
			readBack, err := hex.DecodeString(encoded)
			if err != nil {
				return errors.Wrap(err, "decode read back data")
			}
			if !bytes.Equal(data, readBack) {
				return errors.Errorf("verify failed: flash contents differ from %s", flagIn)
			}
			log.Info().Msg("verify passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Start address, decimal or 0x-prefixed hex")
	cmd.Flags().StringVar(&flagIn, "in", "", "File whose contents are programmed")
	cmd.Flags().BoolVar(&flagVerify, "verify", false, "Read the region back and compare")
	_ = cmd.MarkFlagRequired("addr")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
