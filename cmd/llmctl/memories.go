package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newMemoriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "memories",
		Short: "List configured memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			mems := svc.ListMemories()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"NAME", "EMBEDDING MODEL", "DIMENSIONS", "STORE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for _, m := range mems {
				table.Append([]string{m.Name, m.EmbeddingModelKey, fmt.Sprint(m.Dimensions), string(m.Store.Kind)})
			}
			table.Render()
			return nil
		},
	}
}
