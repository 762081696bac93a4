package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/projtrack/tracker/internal/app"
	"github.com/projtrack/tracker/internal/ingest"
	"github.com/projtrack/tracker/pkg/activity"
	"github.com/spf13/cobra"
)

var kinds = []string{"activities", "challenges"}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "import activities|challenges <file>",
		Short:     "Import a spreadsheet or CSV file",
		Args:      cobra.MatchAll(cobra.ExactArgs(2), kindArg),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			deps, db, err := opts.dependencies()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := importFile(cmd, deps, args[0], f, filepath.Base(args[1]))
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func importFile(cmd *cobra.Command, deps *app.Dependencies, kind string, r io.Reader, name string) (ingest.Report, error) {
	if kind == "challenges" {
		return deps.ChallengeService.Import(cmd.Context(), r, name)
	}
	return deps.ActivityService.Import(cmd.Context(), r, name)
}

func printReport(w io.Writer, report ingest.Report) {
	_, _ = fmt.Fprintf(w, "created: %d\nupdated: %d\nskipped: %d\n", report.Created, report.Updated, report.Skipped)
	for _, a := range report.Anomalies {
		_, _ = fmt.Fprintf(w, "line %d: %s %s %q\n", a.Line, a.Field, a.Kind, a.Value)
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export activities|challenges",
		Short:     "Export records as CSV",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), kindArg),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, db, err := opts.dependencies()
			if err != nil {
				return err
			}
			defer db.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if args[0] == "challenges" {
				return deps.ChallengeService.Export(cmd.Context(), w)
			}
			return deps.ActivityService.Export(cmd.Context(), activity.Filter{}, w)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func kindArg(cmd *cobra.Command, args []string) error {
	for _, k := range kinds {
		if args[0] == k {
			return nil
		}
	}
	return fmt.Errorf("unknown record kind %q, expected activities or challenges", args[0])
}
