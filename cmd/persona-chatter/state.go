package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"persona-chatter/internal/analytics"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Inspect and edit the persona catalog",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(a)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tBUILTIN\tDESCRIPTION")
		for _, p := range a.Registry.List() {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.Name, p.DisplayName, p.Builtin, p.Description)
		}
		return w.Flush()
	},
}

var personasAddCmd = &cobra.Command{
	Use:   "add <name> <prompt...>",
	Short: "Register a persona or replace its prompt",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(a)

		p, err := a.Registry.Register(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", p.Name, p.DisplayName)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <user_id>",
	Short: "Print a user's conversations grouped by persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(a)

		h, err := a.History.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"user_id": args[0], "history": h})
	},
}

var (
	reportDate string
	reportJSON bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded turns for one day (UTC)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		day := time.Now().UTC()
		if reportDate != "" {
			d, err := time.Parse("2006-01-02", reportDate)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			day = d
		}

		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(a)
		if a.Recorder == nil {
			return fmt.Errorf("turn log is disabled (LOG_FILE_PATH is empty)")
		}

		events, err := a.Recorder.LoadInteractions()
		if err != nil {
			return err
		}
		stats := analytics.AnalyzeDailyLogs(events, day)
		if reportJSON {
			out, err := stats.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
		return nil
	},
}

func init() {
	personasCmd.AddCommand(personasListCmd, personasAddCmd)
	reportCmd.Flags().StringVar(&reportDate, "date", "", "day to report, YYYY-MM-DD (default today)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the stats as JSON")
}
