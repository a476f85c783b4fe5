package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newTasksCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List configured tasks and their serving counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			stats := svc.ListTasks()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"TASK", "COMPLETIONS", "TOKENS", "ERRORS"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for name, s := range stats {
				table.Append([]string{name, fmt.Sprint(s.CompletionsTotal), fmt.Sprint(s.TokensGenerated), fmt.Sprint(s.ErrorsTotal)})
			}
			table.Render()
			return nil
		},
	}
}
