package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newEmbedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <task> <text>",
		Short: "Embed text through a task's model and print the vector length",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			vec, err := svc.Embed(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%d dimensions\n", len(vec))
			return nil
		},
	}
}
