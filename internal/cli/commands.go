package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
)

func (a *app) importCommand() *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import candidates from an .xlsx or .csv file",
		Long: `Import candidates from a spreadsheet whose header row names at least the
name, email, phone and status columns. Rows matching an existing candidate by
email or phone are handled by the duplicate policy.`,
		Args: exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p core.DuplicatePolicy
			if policy != "" {
				parsed, err := core.ParseDuplicatePolicy(policy)
				if err != nil {
					return &usageError{err: err}
				}
				p = parsed
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			report, err := a.service.Import(cmd.Context(), filepath.Base(args[0]), f, p)
			if report != nil {
				printImportReport(a.out, report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "duplicate policy: skip, update or update-stale (default from IMPORT_DUPLICATE_POLICY)")
	return cmd
}

func (a *app) previewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE",
		Short: "Show what importing a file would do, without writing anything",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			report, err := a.service.Preview(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			printPreview(a.out, report)
			return nil
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export all candidates to an .xlsx or .csv file",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := outputFormat(args[0], format)
			if err != nil {
				return err
			}
			var n int
			err = writeFile(args[0], func(w io.Writer) error {
				var err error
				n, err = a.service.Export(cmd.Context(), w, f)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d candidate(s) to %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "xlsx or csv (default from the file extension)")
	return cmd
}

func (a *app) templateCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "template FILE",
		Short: "Write an import template with the expected columns and a sample row",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := outputFormat(args[0], format)
			if err != nil {
				return err
			}
			if err := writeFile(args[0], func(w io.Writer) error {
				return a.service.ExportTemplate(w, f)
			}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote import template to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "xlsx or csv (default from the file extension)")
	return cmd
}

func (a *app) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print candidate counts per status and the latest imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sum, err := a.service.Summary(ctx)
			if err != nil {
				return err
			}
			runs, err := a.service.RecentImports(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Total\t%d\n", sum.Total)
			for _, st := range core.Statuses {
				fmt.Fprintf(tw, "%s\t%d\n", st, sum.Count(st))
			}
			tw.Flush()

			if len(runs) == 0 {
				return nil
			}
			fmt.Fprintln(a.out)
			tw = tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tFILE\tPOLICY\tROWS\tINSERTED\tUPDATED\tSKIPPED\tREJECTED")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					run.StartedAt.Local().Format("2006-01-02 15:04"), run.FileName, run.Policy,
					run.Total, run.Inserted, run.Updated, run.Skipped, run.Rejected)
			}
			return tw.Flush()
		},
	}
}

// outputFormat resolves the export format from the flag or the file name.
func outputFormat(path, flag string) (spreadsheet.Format, error) {
	if flag != "" {
		f, err := spreadsheet.ParseFormat(flag)
		if err != nil {
			return "", &usageError{err: err}
		}
		return f, nil
	}
	return spreadsheet.FormatFromName(path)
}

// writeFile creates path and fills it with fn. The file is removed if fn fails.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return fn(f)
}

func printImportReport(w io.Writer, r *core.ImportReport) {
	fmt.Fprintf(w, "%s: %d row(s), %d inserted, %d updated, %d skipped, %d rejected (policy %s, %s)\n",
		r.FileName, r.Total, r.Inserted, r.Updated, r.Skipped, r.Rejected, r.Policy,
		r.Duration.Round(time.Millisecond))

	problems := r.Problems()
	if len(problems) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tOUTCOME\tEMAIL\tREASON")
	for _, row := range problems {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Line, row.Outcome, row.Email, strings.Join(row.Reasons, "; "))
	}
	tw.Flush()
}

func printPreview(w io.Writer, r *core.PreviewReport) {
	fmt.Fprintf(w, "%s: %d row(s), %d new, %d duplicate(s), %d repeated in file, %d invalid\n",
		r.FileName, r.Total, r.New, r.Duplicates, r.DuplicateInFile, r.Invalid)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := false
	for _, row := range r.Rows {
		var detail string
		switch row.Action {
		case core.ActionNew:
			continue
		case core.ActionDuplicate:
			detail = fmt.Sprintf("matches candidate #%d", row.ExistingID)
		case core.ActionDuplicateInFile:
			detail = fmt.Sprintf("same email or phone as line %d", row.FirstLine)
		case core.ActionInvalid:
			detail = strings.Join(row.Errors, "; ")
		}
		if !header {
			fmt.Fprintln(tw, "LINE\tACTION\tEMAIL\tDETAIL")
			header = true
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Line, row.Action, row.Input.Email, detail)
	}
	tw.Flush()
}
