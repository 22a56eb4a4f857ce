package cmd

import (
	"fmt"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var varsOutputPath string

var variablesCmd = &cobra.Command{
	Use:   "variables <file>",
	Short: "Print the inferred variables as an editable metadata file",
	Long: `Print the variables StatLoom infers for a dataset (type, measure, labels) as YAML.
Edit the output and pass it back to 'explore --metadata' to override labels,
declared types or value labels.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := datasetOptions()
		if err != nil {
			return err
		}
		ds, err := loadDataset(args[0], opt)
		if err != nil {
			return err
		}
		for _, w := range ds.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}
		b, err := dataset.MetadataOf(ds).YAML()
		if err != nil {
			return err
		}
		if varsOutputPath != "" {
			if err := utils.SafeWriteFile(varsOutputPath, b); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d variables to %s\n", len(ds.Variables), varsOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	rootCmd.AddCommand(variablesCmd)
	variablesCmd.Flags().StringVarP(&varsOutputPath, "output", "o", "", "write metadata YAML to a file")
	variablesCmd.Flags().StringVar(&expMetadata, "metadata", "", "YAML metadata to apply before printing")
	variablesCmd.Flags().StringVar(&expDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	variablesCmd.Flags().StringVar(&expSheetName, "sheet-name", "", "XLSX: sheet name to read")
	variablesCmd.Flags().IntVar(&expSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
