package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newForgetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <memory>",
		Short: "Clear every chunk stored in a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			return svc.Forget(context.Background(), args[0])
		},
	}
}
