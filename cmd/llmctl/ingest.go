package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newIngestCmd(configPath *string) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "ingest <memory> <path>",
		Short: "Extract, chunk, embed, and store a document in a memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(*configPath)
			if err != nil {
				return err
			}
			memoryKey, path := args[0], args[1]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := svc.Remember(context.Background(), memoryKey, sniffMIME(path), data, wait); err != nil {
				return err
			}
			if wait {
				fmt.Println("ingested")
			} else {
				fmt.Println("ingestion started in the background")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "block until ingestion finishes instead of running it in the background")
	return cmd
}

// sniffMIME guesses a document's MIME type from its extension, the
// only signal the command line gives us.
func sniffMIME(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return "application/pdf"
	}
	return "text/plain"
}
