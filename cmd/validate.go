package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chirag127/TinyImage/internal/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate <out_dir_or_report>",
	Short: "Validate a tinyimage report and check the files it references",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	r, reportPath, err := report.Load(args[0])
	if err != nil {
		return err
	}

	problems := report.Verify(r, filepath.Dir(reportPath))
	if len(problems) == 0 {
		fmt.Println("  ✓ Report is valid")
		fmt.Printf("  ✓ %d images, %d outputs, all files present and matching\n", r.Stats.Total, r.Stats.Completed)
		return nil
	}

	fmt.Printf("  ✗ Report has %d error(s):\n", len(problems))
	for _, p := range problems {
		fmt.Printf("    • %s\n", p)
	}
	return fmt.Errorf("validation failed with %d errors", len(problems))
}
