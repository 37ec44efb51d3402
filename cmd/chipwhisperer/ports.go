package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genregod/ChipWhisperer/pkg/serial"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serial.NewTransport().AvailablePorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				cmd.Println("No serial ports found.")
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-4s %-24s %s\n", "ID", "NAME", "LABEL")
			for _, p := range ports {
				fmt.Fprintf(w, "%-4d %-24s %s\n", p.ID, p.Name, p.Label)
			}
			return nil
		},
	}
}
