package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/AnyUserName/jpeg2png/internal/report"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <report_path>",
	Short: "Validate a batch report against the PNG files it lists",
	Long: `Re-checks every successful item of a report: the PNG exists, decodes with
the recorded dimensions, and its size and content hash match. Relative
destinations are resolved against the report's directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fsys := afero.NewOsFs()
	reportPath := args[0]

	r, err := report.ReadJSON(fsys, reportPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	problems := report.Validate(fsys, r, filepath.Dir(reportPath))
	if len(problems) == 0 {
		fmt.Fprintln(out, "  ✓ Report is valid")
		fmt.Fprintf(out, "  ✓ %d items, %d PNGs verified\n", r.Stats.Total, r.Stats.Succeeded)
		return nil
	}

	fmt.Fprintf(out, "  ✗ Report has %d error(s):\n", len(problems))
	for _, p := range problems {
		fmt.Fprintf(out, "    • %s\n", p)
	}
	return fmt.Errorf("validation failed with %d errors", len(problems))
}
