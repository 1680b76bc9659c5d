package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lgxpkg/lgx/pkgfile"
)

var createOutput string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new, empty LGX package",
	Long: `Create a new LGX package with default manifest metadata and an
empty variants/ directory.

Examples:
  lgx create MyPkg
  lgx create MyPkg --output mypkg.lgx`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "output path (default: <name>.lgx)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := createOutput
	if out == "" {
		out = name + ".lgx"
	}

	logger.Info("creating package", zap.String("name", name), zap.String("output", out))

	pkg, err := pkgfile.Create(out, name)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	fmt.Printf("Created %s\n", out)
	fmt.Printf("  name:    %s\n", pkg.Manifest.Name)
	fmt.Printf("  version: %s\n", pkg.Manifest.Version)
	return nil
}
