package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sreehariX/redbus-scrapping/store"
)

func newMergeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "merge <route.csv>...",
		Short: "Combine per-route CSV files into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := store.Merge(output, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "merged.csv", "Combined output file")
	return cmd
}

func newCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <file.csv>",
		Short: "Tally data rows per route pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := store.RouteCounts(args[0])
			if err != nil {
				return err
			}
			total := 0
			for _, c := range counts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s to %s: %d\n", c.From, c.To, c.Count)
				total += c.Count
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", total)
			return nil
		},
	}
	return cmd
}

func newReindexCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "reindex <file.csv>",
		Short: "Renumber the Bus ID column 1..n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := store.Reindex(args[0], output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renumbered %d rows\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of in place")
	return cmd
}
