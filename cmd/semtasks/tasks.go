package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/semtasks/tools/image"
	"github.com/c360studio/semtasks/tools/web"
)

func fetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch URL SAVE_PATH",
		Short: "Download a URL to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.resolve(args[1])
			if err != nil {
				return err
			}
			if err := a.tools.Web.FetchToFile(cmd.Context(), args[0], out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], out)
			return nil
		},
	}
}

func scrapeCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "scrape URL OUT_PATH",
		Short: "Fetch a web page and save its content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := web.ParseFormat(format)
			if err != nil {
				return err
			}
			out, err := a.resolve(args[1])
			if err != nil {
				return err
			}
			if err := a.tools.Web.ScrapeToFile(cmd.Context(), args[0], out, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scraped %s to %s (%s)\n", args[0], out, f)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(web.FormatRaw), "Output format (raw, text, markdown)")
	return cmd
}

func cloneCmd(a *app) *cobra.Command {
	var allowEmpty bool

	cmd := &cobra.Command{
		Use:   "clone REPO_URL MESSAGE",
		Short: "Clone a repository into the root and commit its working tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := a.tools.Git.CloneAndCommit(cmd.Context(), args[0], args[1], allowEmpty)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", hash, a.tools.Git.RepoPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "Allow a commit with no changes")
	return cmd
}

func queryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query DB_PATH QUERY OUT_PATH",
		Short: "Run a SQL query against a SQLite or DuckDB file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			out, err := a.resolve(args[2])
			if err != nil {
				return err
			}
			rows, err := a.tools.Query.RunQuery(cmd.Context(), db, args[1], out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rows.String())
			return nil
		},
	}
}

func imageCmd(a *app) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "image IN_PATH OUT_PATH",
		Short: "Convert an image, optionally resizing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var size *image.Size
			switch {
			case width > 0 && height > 0:
				size = &image.Size{Width: width, Height: height}
			case width != 0 || height != 0:
				return fmt.Errorf("--width and --height must both be positive")
			}

			in, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			out, err := a.resolve(args[1])
			if err != nil {
				return err
			}
			if err := a.tools.Image.Transform(cmd.Context(), in, out, size); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Target width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Target height in pixels")
	return cmd
}

func transcribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe AUDIO_PATH",
		Short: "Transcribe an audio file to text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			text, err := a.tools.Audio.Transcribe(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func md2htmlCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "md2html MD_PATH OUT_PATH",
		Short: "Render markdown to HTML",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			out, err := a.resolve(args[1])
			if err != nil {
				return err
			}

			if !watch {
				if err := a.tools.Markdown.Render(cmd.Context(), in, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", out)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events, err := a.tools.Markdown.Watch(ctx, in, out, 0)
			if err != nil {
				return err
			}
			for ev := range events {
				if ev.Error != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "render failed: %v\n", ev.Error)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", ev.Output)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render whenever the source changes")
	return cmd
}

func filterCSVCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "filter-csv CSV_PATH COLUMN VALUE",
		Short: "Print the CSV rows where COLUMN equals VALUE as JSON",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			records, err := a.tools.CSV.Filter(cmd.Context(), in, args[1], args[2])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
}
