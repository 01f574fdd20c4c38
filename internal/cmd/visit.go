package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fieldsales-workers/internal/visit"
)

func newVisitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Visit rule helpers",
	}

	var (
		target time.Duration
		at     string
	)
	timer := &cobra.Command{
		Use:   "timer <check-in RFC3339>",
		Short: "Show the on-site timer a rep would see",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkIn, err := time.Parse(time.RFC3339, args[0])
			if err != nil {
				return fmt.Errorf("check-in: %w", err)
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			d := visit.NewTimer(checkIn, target).At(now)
			state := "remaining"
			if d.Overtime {
				state = "overtime"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, elapsed %ds of %ds)\n", d.Display, state, d.ElapsedSeconds, d.TargetSeconds)
			return nil
		},
	}
	timer.Flags().DurationVar(&target, "target", visit.DefaultTarget, "target time on site")
	timer.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 instant instead of now")

	cmd.AddCommand(timer)
	return cmd
}
