package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newModelsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			models := svc.ListModels()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"KEY", "ARCHITECTURE", "SESSIONS", "PATH"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for _, m := range models {
				table.Append([]string{m.Key, m.Architecture, fmt.Sprint(m.Sessions), m.Path})
			}
			table.Render()
			return nil
		},
	}
}
