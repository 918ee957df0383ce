package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"askdb/internal/pipeline"
)

func askCmd() *cobra.Command {
	var pendingOriginal string

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, _, logger, err := buildPipeline()
			if err != nil {
				return err
			}
			defer logger.Sync()

			req := pipeline.Request{Question: strings.Join(args, " ")}
			if pendingOriginal != "" {
				req.Pending = &pipeline.PendingClarification{OriginalQuestion: pendingOriginal}
			}

			resp := pipe.Answer(cmd.Context(), req)
			printResponse(resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&pendingOriginal, "clarifies", "",
		"original question when answering a previous clarification request")
	return cmd
}

func printResponse(resp pipeline.Response) {
	switch resp.Kind {
	case pipeline.KindClarification:
		color.Yellow("Clarification needed:")
		fmt.Println(resp.Text)
		fmt.Println()
		color.HiBlack("answer with: askdb ask --clarifies '<original question>' '<your answer>'")
	case pipeline.KindGuidance:
		fmt.Println(resp.Text)
	default:
		if resp.StoreID != "" {
			color.Cyan("store: %s", resp.StoreID)
		}
		fmt.Println(resp.Text)
	}
}
