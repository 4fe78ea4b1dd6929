package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemClassify/internal/rulespec"
)

func newValidateCommand() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rule-set document without classifying anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := rulespec.Load(rulesPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"rule set OK: %d classes, %d rules\n",
				rs.Graph().Len(), rs.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to the rule-set document")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}
