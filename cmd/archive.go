package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"epictech-chat/archive"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		format string
		convID int64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Back up every conversation to a JSON file",
		Long: `Back up every conversation to a JSON file.

The file is written to the configured export directory as
<product>_export_YYYY-MM-DD.json unless --out is given. Use --out - for stdout.
With --format markdown a single conversation (--id) is rendered instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var render func(w io.Writer) error
			defaultName := archive.FileName(a.cfg.Data.Product, time.Now())
			switch format {
			case "json":
				doc, err := archive.Export(ctx, a.store)
				if err != nil {
					return err
				}
				render = func(w io.Writer) error { return archive.Encode(w, doc) }
			case "markdown", "md":
				if convID <= 0 {
					return fmt.Errorf("--id is required for markdown export")
				}
				defaultName = fmt.Sprintf("conversation_%d.md", convID)
				render = func(w io.Writer) error { return archive.WriteMarkdown(ctx, a.store, convID, w) }
			default:
				return fmt.Errorf("unknown format %q (json or markdown)", format)
			}

			if out == "-" {
				return render(cmd.OutOrStdout())
			}
			if out == "" {
				out = filepath.Join(a.cfg.Data.ExportDir, defaultName)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return fmt.Errorf("failed to create export directory: %w", err)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := render(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			a.logger.Info("Exported to %s", out)
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or markdown")
	cmd.Flags().Int64Var(&convID, "id", 0, "conversation to export as markdown")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the conversations of an exported JSON file",
		Long: `Add the conversations of an exported JSON file. Use - to read stdin.

Imported conversations always get new ids; existing ones are never replaced.
Nothing is written when the file is not a valid export.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			n, err := archive.ImportFrom(cmd.Context(), a.store, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Imported %d conversation(s)\n", n)
			return nil
		},
	}
}
