package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert source documents, then build import records",
	Long: `Run is convert followed by build, the full path from office documents to
import files.

Examples:
  sheetpipe run
  sheetpipe run --source ./excel_files --output-dir ./out --preview markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := runContext(cmd.Context())
		defer cancel()
		if err := runConvert(ctx); err != nil {
			return err
		}
		return runBuild(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addConvertFlags(runCmd)
	addBuildFlags(runCmd)
}
