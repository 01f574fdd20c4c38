package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/report"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/workers/dashboard/dashcache"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Dashboard reports",
	}

	var (
		userID string
		outDir string
		date   string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a month-to-date xlsx report for a user to a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx := cmd.Context()
			pg, err := openPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			st := store.New(pg.DB)
			p, err := principalFor(ctx, st, userID)
			if err != nil {
				return err
			}

			loc := dashcache.Location(cfg.Dashboard.Timezone)
			now := time.Now().In(loc)
			if date != "" {
				day, err := time.ParseInLocation("2006-01-02", date, loc)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				now = day.Add(24*time.Hour - time.Second)
			}

			data, err := report.Gather(ctx, st, p, now, cfg.Dashboard.NeglectThresholdDays)
			if err != nil {
				return err
			}
			body, err := report.Workbook(data)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			target := filepath.Join(outDir, data.FileName())
			if err := os.WriteFile(target, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", target, len(body))
			return nil
		},
	}
	export.Flags().StringVar(&userID, "user", "", "user id the report is generated for")
	export.Flags().StringVar(&outDir, "out", ".", "output directory")
	export.Flags().StringVar(&date, "date", "", "report as of this day (YYYY-MM-DD, default today)")

	cmd.AddCommand(export)
	return cmd
}

// principalFor rebuilds the principal of a stored user, including a
// manager's team.
func principalFor(ctx context.Context, st *store.Store, userID string) (access.Principal, error) {
	u, err := st.GetUser(ctx, userID)
	if err != nil {
		return access.Principal{}, err
	}
	role, err := access.ParseRole(u.Role)
	if err != nil {
		return access.Principal{}, err
	}
	p := access.Principal{UserID: u.ID, Email: u.Email, DisplayName: u.FullName, Role: role}
	if role == access.RoleManager {
		if p.TeamIDs, err = st.TeamMemberIDs(ctx, u.ID); err != nil {
			return access.Principal{}, err
		}
	}
	return p, nil
}
