package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"draftpad/pkg/draftdoc"
)

func newExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the saved document as plain text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			doc, err := draftdoc.LoadWithOptions(cfg.DocumentPath(), cfg.LoadOptions())
			if errors.Is(err, fs.ErrNotExist) {
				doc = draftdoc.NewDocument("")
			} else if err != nil {
				return fmt.Errorf("read %s: %w", cfg.DocumentPath(), err)
			}

			text := draftdoc.PlainText(doc)
			if output != "" {
				return draftdoc.WriteFileAtomic(output, []byte(text), 0o644)
			}
			if text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newInspectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show how the document is stored on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			path := cfg.DocumentPath()
			env, err := draftdoc.InspectEnvelope(path)
			if err != nil {
				return err
			}
			doc, err := draftdoc.LoadWithOptions(path, cfg.LoadOptions())
			if err != nil {
				return err
			}
			layout, err := draftdoc.InspectLayout(doc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:       %s\n", path)
			fmt.Fprintf(out, "envelope:   %s\n", envelopeSummary(env))
			fmt.Fprintf(out, "blocks:     %d\n", len(doc.Blocks))
			fmt.Fprintf(out, "container:  %d bytes\n\n", layout.FileSize)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEGMENT\tID\tOFFSET\tLENGTH")
			for _, seg := range layout.Segments {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", seg.Name, seg.BlockID, seg.Offset, seg.Length)
			}
			return tw.Flush()
		},
	}
}

func newPathCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the document path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.DocumentPath())
			return nil
		},
	}
}

func envelopeSummary(info draftdoc.EnvelopeInfo) string {
	switch {
	case !info.Wrapped:
		return "none"
	case info.Compressed && info.Encrypted:
		return "compressed, encrypted"
	case info.Encrypted:
		return "encrypted"
	default:
		return "compressed"
	}
}
