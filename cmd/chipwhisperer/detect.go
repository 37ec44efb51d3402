package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	var (
		flagSave  bool
		flagNotes string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Identify the SPI flash chip attached to the programmer",
		Long:  "Connects to the CH341A programmer, reads the chip's JEDEC id and resolves it against the chip table. Unknown parts are reported with placeholder geometry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			prog := newProgrammer()
			if err := prog.Connect(ctx); err != nil {
				return err
			}
			defer prog.Disconnect()

			chip, err := prog.DetectChip(ctx)
			if err != nil {
				return err
			}
			printChip(cmd.OutOrStdout(), chip)

			if flagSave {
				lib, err := openLibrary()
				if err != nil {
					return err
				}
				defer lib.Close()
				if err := lib.SaveChip(chip, flagNotes); err != nil {
					return err
				}
				log.Info().
					Str("manufacturer_id", chip.ManufacturerID).
					Str("device_id", chip.DeviceID).
					Str("name", chip.Name).
					Msg("chip saved to library")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagSave, "save", false, "Save the detected chip to the local library")
	cmd.Flags().StringVar(&flagNotes, "notes", "", "Notes stored alongside --save")

	return cmd
}
