package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"go_inpaint/db"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit     int
		pruneDays int
		id        string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generations, or one by ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pruneDays < 0 {
				return errors.New("--prune-days must not be negative")
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			repo, err := a.openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if pruneDays > 0 {
				n, err := repo.PruneOlderThan(cmd.Context(), time.Duration(pruneDays)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d generations older than %d days\n", n, pruneDays)
			}

			if id != "" {
				rec, err := repo.GetGeneration(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderHistory(cmd, []db.GenerationRecord{rec})
				return nil
			}

			records, err := repo.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderHistory(cmd, records)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", db.DefaultListLimit, "number of generations to show")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "delete generations older than this many days first")
	cmd.Flags().StringVar(&id, "id", "", "show only the generation with this correlation ID")
	return cmd
}

func renderHistory(cmd *cobra.Command, records []db.GenerationRecord) {
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no generations recorded")
		return
	}
	data := make([][]string, 0, len(records))
	for _, r := range records {
		status := r.Status
		if r.ErrorMessage != "" {
			status += ": " + r.ErrorMessage
		}
		data = append(data, []string{
			r.CorrelationID,
			r.CreatedAt.Format(time.DateTime),
			r.ModelName,
			r.Backend,
			r.Sampler,
			strconv.FormatInt(r.Seed, 10),
			strconv.Itoa(r.Steps),
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			status,
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"ID", "CREATED", "MODEL", "BACKEND", "SAMPLER", "SEED", "STEPS", "SIZE", "DURATION", "STATUS"},
		data)
}
