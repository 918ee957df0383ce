package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func dbsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dbs",
		Short: "List all registered stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, _, logger, err := buildPipeline()
			if err != nil {
				return err
			}
			defer logger.Sync()

			for _, d := range pipe.Registry().All() {
				color.Cyan("%s", d.ID)
				fmt.Printf("  path:   %s\n", d.Rel)
				if len(d.TablesPreview) > 0 {
					fmt.Printf("  tables: %s\n", strings.Join(d.TablesPreview, ", "))
				}
			}
			return nil
		},
	}
}
