package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/genregod/ChipWhisperer/pkg/chips"
)

func newChipsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chips",
		Short: "Manage the local chip library",
	}
	cmd.AddCommand(newChipsListCmd(), newChipsAddCmd(), newChipsRemoveCmd())
	return cmd
}

func newChipsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chips stored in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			records, err := lib.ListChips()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				cmd.Println("Library is empty.")
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-4s %-6s %-14s %-10s %s\n", "MFR", "DEV", "NAME", "CAPACITY", "NOTES")
			for _, r := range records {
				fmt.Fprintf(w, "%-4s %-6s %-14s %-10s %s\n", r.ManufacturerID, r.DeviceID, r.Name, r.Capacity, r.Notes)
			}
			return nil
		},
	}
}

func newChipsAddCmd() *cobra.Command {
	var (
		flagMfr       string
		flagDev       string
		flagName      string
		flagCapacity  string
		flagBlockSize int
		flagPageSize  int
		flagNotes     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a chip in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			chip := chips.Chip{
				ManufacturerID: flagMfr,
				DeviceID:       flagDev,
				Name:           flagName,
				Capacity:       flagCapacity,
				BlockSize:      flagBlockSize,
				PageSize:       flagPageSize,
			}
			if err := lib.SaveChip(chip, flagNotes); err != nil {
				return err
			}
			log.Info().Str("manufacturer_id", flagMfr).Str("device_id", flagDev).Str("name", flagName).Msg("chip saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagMfr, "mfr", "", "Manufacturer id, hex such as EF")
	cmd.Flags().StringVar(&flagDev, "dev", "", "Device id, hex such as 4018")
	cmd.Flags().StringVar(&flagName, "name", "", "Part name")
	cmd.Flags().StringVar(&flagCapacity, "capacity", chips.UnknownCapacity, "Capacity label such as 16MB")
	cmd.Flags().IntVar(&flagBlockSize, "block-size", chips.DefaultBlockSize, "Block size in bytes")
	cmd.Flags().IntVar(&flagPageSize, "page-size", chips.DefaultPageSize, "Page size in bytes")
	cmd.Flags().StringVar(&flagNotes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("mfr")
	_ = cmd.MarkFlagRequired("dev")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newChipsRemoveCmd() *cobra.Command {
	var (
		flagMfr string
		flagDev string
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a chip from the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			removed, err := lib.RemoveChip(flagMfr, flagDev)
			if err != nil {
				return err
			}
			if !removed {
				return errors.Errorf("chip %s/%s not found in library", flagMfr, flagDev)
			}
			log.Info().Str("manufacturer_id", flagMfr).Str("device_id", flagDev).Msg("chip removed")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagMfr, "mfr", "", "Manufacturer id, hex such as EF")
	cmd.Flags().StringVar(&flagDev, "dev", "", "Device id, hex such as 4018")
	_ = cmd.MarkFlagRequired("mfr")
	_ = cmd.MarkFlagRequired("dev")

	return cmd
}
