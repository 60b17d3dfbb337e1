package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bookforge/internal/versions"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find indexed versions similar to the query text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			matches, err := core.pipeline.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				cmd.Println("No matches")
				return nil
			}

			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				rows = append(rows, []string{
					match.Key.ChapterID,
					strconv.FormatInt(match.Key.Sequence, 10),
					string(match.VersionType),
					fmt.Sprintf("%.4f", match.Distance),
					match.Snippet,
				})
			}
			cmd.Println(renderTable(
				[]string{"CHAPTER", "SEQ", "TYPE", "DISTANCE", "SNIPPET"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of matches")
	return cmd
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "score <chapter-id> <feedback>",
		Short: "Score the chapter's latest draft given human feedback",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			breakdown, err := core.pipeline.Score(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			cmd.Printf("Score: %.3f\n", breakdown.Score)
			cmd.Printf("  sentiment:  %s (%+.1f)\n", breakdown.Sentiment, breakdown.Feedback)
			cmd.Printf("  similarity: %+.3f\n", breakdown.Similarity)
			cmd.Printf("  length:     %+.1f\n", breakdown.Penalty)
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store and index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			stats, err := core.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			chapters, err := core.store.Chapters(cmd.Context())
			if err != nil {
				return err
			}
			indexed, err := core.index.Count(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf("Database: %s\n", core.store.Path())
			cmd.Printf("Chapters: %d\n", len(chapters))
			cmd.Printf("Indexed vectors: %d\n", indexed)
			for _, versionType := range versions.AllTypes() {
				if count := stats[versionType]; count > 0 {
					cmd.Printf("  %-13s %d\n", string(versionType)+":", count)
				}
			}
			return nil
		},
	}
}
