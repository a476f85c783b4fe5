package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCompleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task> <prompt>",
		Short: "Run one completion against a configured task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			res, err := svc.Complete(context.Background(), args[0], args[1], nil)
			if err != nil {
				return err
			}
			fmt.Println(res.Text)
			cmd.PrintErrf("stop reason: %s\n", res.Reason)
			return nil
		},
	}
}
