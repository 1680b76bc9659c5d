package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lgxpkg/lgx/pkgfile"
)

var (
	addVariant string
	addFiles   string
	addMain    string
	addYes     bool
)

var addCmd = &cobra.Command{
	Use:   "add <pkg>",
	Short: "Add or replace a variant in an LGX package",
	Long: `Add or total-replace a variant's contents in an LGX package
from a file or directory.

Examples:
  lgx add mypkg.lgx --variant linux-amd64 --files ./lib.so
  lgx add mypkg.lgx --variant web --files ./dist --main index.html`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addVariant, "variant", "", "variant name (required)")
	addCmd.Flags().StringVar(&addFiles, "files", "", "source file or directory for the variant (required)")
	addCmd.Flags().StringVar(&addMain, "main", "", "relative path of the variant's entry point (required for directory sources)")
	addCmd.Flags().BoolVarP(&addYes, "yes", "y", false, "skip the confirmation prompt when main would change")
}

func runAdd(cmd *cobra.Command, args []string) error {
	pkgPath := args[0]
	if addVariant == "" {
		return errVariantRequired
	}
	if addFiles == "" {
		return errFilesRequired
	}

	pkg, err := pkgfile.Load(pkgPath)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	var mainOpt *string
	if addMain != "" {
		mainOpt = &addMain
	}

	proposedMain := addMain
	if proposedMain == "" {
		proposedMain = baseName(addFiles)
	}
	if !addYes && pkg.WouldMainChange(addVariant, proposedMain) && pkg.HasVariant(addVariant) {
		if !confirm(fmt.Sprintf("variant %q already has a main entry point; replacing it with %q. Continue?", addVariant, proposedMain)) {
			fmt.Println("aborted")
			return nil
		}
	}

	logger.Info("adding variant", zap.String("package", pkgPath), zap.String("variant", addVariant), zap.String("files", addFiles))

	if err := pkg.AddVariant(addVariant, addFiles, mainOpt); err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	if err := pkg.Save(pkgPath); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	fmt.Printf("Added variant %q to %s\n", addVariant, pkgPath)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func baseName(p string) string {
	i := strings.LastIndexByte(p, os.PathSeparator)
	if i < 0 {
		return p
	}
	return p[i+1:]
}
