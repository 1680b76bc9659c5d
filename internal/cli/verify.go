package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lgxpkg/lgx/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <pkg>",
	Short: "Check an LGX package for cross-layer consistency violations",
	Long: `Load an LGX package and run every cross-consistency check between
its manifest and its archive entries, accumulating all failures rather
than stopping at the first.

Examples:
  lgx verify mypkg.lgx`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	pkgPath := args[0]

	logger.Info("verifying package", zap.String("package", pkgPath))

	report, err := verify.Verify(pkgPath)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	for _, w := range report.Warnings {
		fmt.Println(w)
	}

	if report.Valid() {
		fmt.Printf("%s is valid\n", pkgPath)
		return nil
	}

	for _, e := range report.Errors {
		fmt.Fprintln(os.Stderr, e)
	}
	return fmt.Errorf("%s failed verification with %d error(s)", pkgPath, len(report.Errors))
}
