package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lgxpkg/lgx/pkgfile"
)

var (
	extractVariant string
	extractOutput  string
)

var extractCmd = &cobra.Command{
	Use:   "extract <pkg>",
	Short: "Extract one or all variants from an LGX package",
	Long: `Extract a variant's directory tree from an LGX package to disk.
With no --variant, every variant in the manifest is extracted.

Examples:
  lgx extract mypkg.lgx --variant linux-amd64 --output ./out
  lgx extract mypkg.lgx --output ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractVariant, "variant", "", "variant to extract (default: all variants)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "output directory (default: from config)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	pkgPath := args[0]
	outDir := extractOutput
	if outDir == "" {
		outDir = cfg.Output.ExtractDir
	}

	pkg, err := pkgfile.Load(pkgPath)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	logger.Info("extracting package", zap.String("package", pkgPath), zap.String("output", outDir))

	if extractVariant != "" {
		if err := pkg.ExtractVariant(extractVariant, outDir); err != nil {
			return fmt.Errorf("extract failed: %w", err)
		}
		fmt.Printf("Extracted variant %q to %s\n", extractVariant, outDir)
		return nil
	}

	if err := pkg.ExtractAll(outDir); err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	fmt.Printf("Extracted %d variant(s) to %s\n", len(pkg.Variants()), outDir)
	return nil
}
