package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show a point-in-time snapshot of pool instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			stats := svc.Stats()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"MODEL", "STATE", "INFLIGHT", "QUEUE", "MAX QUEUE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for _, inst := range stats.Instances {
				table.Append([]string{
					inst.ModelKey, inst.State,
					fmt.Sprint(inst.Inflight), fmt.Sprint(inst.QueueLen), fmt.Sprint(inst.MaxQueueDepth),
				})
			}
			table.Render()
			return nil
		},
	}
}
