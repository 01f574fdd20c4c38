package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/clientindex"
	"fieldsales-workers/internal/common/database"
	"fieldsales-workers/internal/store"
)

func newClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Client book maintenance",
	}

	var batch int
	reindex := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the Elasticsearch client index from PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			name := cfg.Database.Elasticsearch.ClientIndex
			if _, err := es.EnsureIndex(ctx, name, database.ClientIndexMapping); err != nil {
				return err
			}

			clients, err := store.New(pg.DB).ListClients(ctx, access.Principal{UserID: "fieldctl", Role: access.RoleAdmin})
			if err != nil {
				return err
			}
			res, err := clientindex.New(es.Client, name).Reindex(ctx, clients, batch)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "indexed %d of %d clients into %s\n", res.Indexed, len(clients), name)
			for _, id := range res.Failed {
				fmt.Fprintf(out, "rejected: %s\n", id)
			}
			return err
		},
	}
	reindex.Flags().IntVar(&batch, "batch", clientindex.DefaultBatchSize, "documents per bulk request")

	cmd.AddCommand(reindex)
	return cmd
}
