package main

import (
	"bufio"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newEraseCmd() *cobra.Command {
	var flagYes bool

	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase the entire SPI flash chip",
		Long:  "Issues a full chip erase. The command asks for confirmation on a terminal; non-interactive runs must pass --yes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flagYes {
				ok, err := confirmErase(cmd)
				if err != nil {
					return err
				}
				if !ok {
					log.Info().Msg("erase aborted")
					return nil
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			prog := newProgrammer()
			if err := prog.Connect(ctx); err != nil {
				return err
			}
			defer prog.Disconnect()

			if err := prog.EraseChip(ctx, progressPrinter(cmd.ErrOrStderr(), "Erasing")); err != nil {
				return err
			}
			log.Info().Msg("chip erased")
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagYes, "yes", false, "Erase without asking for confirmation")

	return cmd
}

// confirmErase prompts on the terminal. It fails when stdin is not a
// terminal so that scripts cannot erase a chip by accident.
func confirmErase(cmd *cobra.Command) (bool, error) {
	stdin, isFile := cmd.InOrStdin().(*os.File)
	if !isFile || !isatty.IsTerminal(stdin.Fd()) {
		return false, errors.New("erase needs --yes when not run from a terminal")
	}
	cmd.Print("Erase the entire chip? [y/N]: ")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil {
		return false, errors.Wrap(err, "read confirmation")
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
