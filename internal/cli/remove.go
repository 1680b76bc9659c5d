package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lgxpkg/lgx/pkgfile"
)

var (
	removeVariant string
	removeYes     bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <pkg>",
	Short: "Remove a variant from an LGX package",
	Long: `Remove a variant and all of its archive entries from an LGX
package.

Examples:
  lgx remove mypkg.lgx --variant linux-amd64
  lgx remove mypkg.lgx --variant linux-amd64 -y`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVar(&removeVariant, "variant", "", "variant name (required)")
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	pkgPath := args[0]
	if removeVariant == "" {
		return errVariantRequired
	}

	pkg, err := pkgfile.Load(pkgPath)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	if !removeYes {
		if !confirm(fmt.Sprintf("remove variant %q from %s?", removeVariant, pkgPath)) {
			fmt.Println("aborted")
			return nil
		}
	}

	logger.Info("removing variant", zap.String("package", pkgPath), zap.String("variant", removeVariant))

	if err := pkg.RemoveVariant(removeVariant); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	if err := pkg.Save(pkgPath); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	fmt.Printf("Removed variant %q from %s\n", removeVariant, pkgPath)
	return nil
}
