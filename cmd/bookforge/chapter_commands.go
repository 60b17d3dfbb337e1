package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookforge/internal/textutil"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <url>",
		Short: "Scrape a source page and start a new chapter from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			version, err := core.pipeline.StartChapter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Started chapter %s (sequence %d, %d chars)\n",
				version.ChapterID, version.Sequence, len(version.Content))
			if version.AuxReference != "" {
				cmd.Printf("Snapshot: %s\n", version.AuxReference)
			}
			return nil
		},
	}
}

func newDraftCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "draft <chapter-id>",
		Short: "Request an AI rewrite of the chapter's original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			draft, err := core.pipeline.RequestDraft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Draft appended as sequence %d (%d chars)\n",
				draft.Version.Sequence, len(draft.Version.Content))
			if draft.ReviewFeedback != "" {
				cmd.Printf("\nReview feedback (not stored):\n%s\n", draft.ReviewFeedback)
			}
			return nil
		},
	}
}

func newDecideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "decide <chapter-id> <decision>",
		Short: "Record the human decision ('approve' promotes the latest draft)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			decision := strings.Join(args[1:], " ")
			version, err := core.pipeline.SubmitHumanDecision(cmd.Context(), args[0], decision)
			if err != nil {
				return err
			}
			cmd.Printf("Final draft recorded as sequence %d\n", version.Sequence)
			return nil
		},
	}
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <chapter-id>",
		Short: "Archive a summary extract of the chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			version, err := core.pipeline.ArchiveSummary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Summary archived as sequence %d:\n%s\n", version.Sequence, version.Content)
			return nil
		},
	}
}

func newVersionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <chapter-id>",
		Short: "List a chapter's version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			history, err := core.pipeline.ListVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(history) == 0 {
				cmd.Printf("No versions for chapter %s\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(history))
			for _, version := range history {
				created := ""
				if !version.CreatedAt.IsZero() {
					created = version.CreatedAt.Local().Format(time.RFC3339)
				}
				rows = append(rows, []string{
					strconv.FormatInt(version.Sequence, 10),
					string(version.Type),
					created,
					strconv.Itoa(len(version.Content)),
					textutil.Snippet(version.Content, 60),
				})
			}

			if stdoutIsTerminal() {
				cmd.Println(renderTable(
					[]string{"SEQ", "TYPE", "CREATED", "CHARS", "PREVIEW"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}
			for _, row := range rows {
				cmd.Println(strings.Join(row, "\t"))
			}
			return nil
		},
	}
}

func newStageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <chapter-id>",
		Short: "Show a chapter's workflow stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			stage, err := core.pipeline.Stage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stage)
			return nil
		},
	}
}
