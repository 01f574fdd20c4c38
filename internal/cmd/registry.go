package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fieldsales-workers/internal/workers"
	"fieldsales-workers/pkg/registry"
)

const defaultRegistryPath = "configs/worker-registry.json"

func newRegistryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and maintain the worker registry",
	}
	cmd.PersistentFlags().StringVar(&path, "path", defaultRegistryPath, "path to the registry file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(path)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK TYPE\tCATEGORY\tSTATUS\tTIMEOUT\tRETRIES")
			for _, w := range reg.Workers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", w.TaskType, w.Category, w.ImplementationStatus, w.Timeout, w.Retries)
			}
			return tw.Flush()
		},
	}

	var strict bool
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the registry file and compare it with the implemented workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := reg.Validate()
			missing, orphaned := reg.Diff(workers.TaskTypes)
			for _, t := range missing {
				fmt.Fprintf(out, "warning: %s is implemented but not registered\n", t)
			}
			for _, t := range orphaned {
				fmt.Fprintf(out, "warning: %s is registered but not implemented\n", t)
			}
			if strict {
				for _, t := range missing {
					problems = append(problems, t+": not registered")
				}
				for _, t := range orphaned {
					problems = append(problems, t+": not implemented")
				}
			}
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(out, "error: %s\n", p)
				}
				return fmt.Errorf("registry validation failed with %d problem(s)", len(problems))
			}
			fmt.Fprintf(out, "Registry validation passed (%d workers).\n", len(reg.Workers))
			return nil
		},
	}
	validate.Flags().BoolVar(&strict, "strict", false, "treat registry/code mismatches as errors")

	var w registry.Worker
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a worker to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if w.TaskType == "" || w.Category == "" {
				return errors.New("--task-type and --category are required")
			}
			reg, err := registry.Load(path)
			if errors.Is(err, os.ErrNotExist) {
				reg, err = &registry.WorkerRegistry{Version: "1.0.0"}, nil
			}
			if err != nil {
				return err
			}
			if w.ID == "" {
				w.ID = w.TaskType
			}
			if w.DisplayName == "" {
				w.DisplayName = displayName(w.TaskType)
			}
			if w.ErrorCodes == nil {
				w.ErrorCodes = []string{}
			}
			if err := reg.Add(w); err != nil {
				return err
			}
			if err := reg.Save(path, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added worker: %s\n", w.ID)
			return nil
		},
	}
	add.Flags().StringVar(&w.ID, "id", "", "worker id (defaults to the task type)")
	add.Flags().StringVar(&w.TaskType, "task-type", "", "job type, e.g. visit-check-in")
	add.Flags().StringVar(&w.DisplayName, "display-name", "", "display name")
	add.Flags().StringVar(&w.Description, "description", "", "description")
	add.Flags().StringVar(&w.Category, "category", "", "category, e.g. visit")
	add.Flags().StringVar(&w.Version, "version", "1.0.0", "version")
	add.Flags().StringVar(&w.ImplementationStatus, "status", "planned", "planned, in-progress, completed or verified")
	add.Flags().StringVar(&w.Timeout, "timeout", "10s", "job timeout")
	add.Flags().IntVar(&w.Retries, "retries", 3, "broker retries")
	add.Flags().StringSliceVar(&w.ErrorCodes, "error-codes", nil, "BPMN error codes the worker may raise")

	update := &cobra.Command{
		Use:   "update <id> <field> <value>",
		Short: "Update one field of a registered worker",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(path)
			if err != nil {
				return err
			}
			if err := reg.Update(args[0], args[1], args[2]); err != nil {
				return err
			}
			if err := reg.Save(path, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated worker %s, field %s to %s\n", args[0], args[1], args[2])
			return nil
		},
	}

	cmd.AddCommand(list, validate, add, update, newScaffoldCmd(&path))
	return cmd
}

// displayName turns visit-check-in into "Visit Check In".
func displayName(taskType string) string {
	parts := strings.Split(taskType, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
