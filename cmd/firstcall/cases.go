package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rpggio/firstcall/internal/config"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/spf13/cobra"
)

func newCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Inspect cases in the registry database",
	}
	cmd.AddCommand(newCaseListCmd("open", "List cases that are not complete", (*firstcall.Switchboard).GetAllActiveCases))
	cmd.AddCommand(newCaseListCmd("attention", "List cases waiting on the family", (*firstcall.Switchboard).GetCasesNeedingAttention))
	return cmd
}

type caseLister func(*firstcall.Switchboard, context.Context) ([]firstcall.Case, error)

func newCaseListCmd(use, short string, list caseLister) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if cfg.Registry.Backend == "memory" {
				return fmt.Errorf("the memory registry is only visible to a running server")
			}
			logger, closeLog := newLogger(cfg, cmd.ErrOrStderr())
			defer closeLog()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			cases, err := list(a.board, cmd.Context())
			if err != nil {
				return err
			}
			active, err := a.board.GetActiveCase(cmd.Context())
			if err != nil {
				return err
			}
			activeID := ""
			if active != nil {
				activeID = active.ID
			}
			return printCases(cmd.OutOrStdout(), cases, activeID)
		},
	}
}

func printCases(out io.Writer, cases []firstcall.Case, activeID string) error {
	if len(cases) == 0 {
		_, err := fmt.Fprintln(out, "No cases")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSTAGE\tSTATUS\tUPDATED")
	for _, c := range cases {
		marker := ""
		if c.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, c.ID, c.Details.DeceasedName, c.CurrentStage, c.Status(), c.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
