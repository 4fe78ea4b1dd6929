// Package cli implements the chemclass command line interface: classify
// structures against a rule-set document, or validate a document without
// running anything.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the chemclass command tree.  Construction is pure;
// nothing is loaded until a subcommand runs.
func NewRootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "chemclass",
		Short:         "Chemical ontology classification engine",
		Long:          "chemclass classifies molecular structures into ontology classes\nusing rule-set documents, reporting assignments with evidence and\nhierarchy conflicts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to a configuration file (optional)")

	root.AddCommand(newClassifyCommand(&cfgPath))
	root.AddCommand(newValidateCommand())
	return root
}

// Execute runs the CLI and returns the command error, if any.
func Execute() error {
	return NewRootCommand().Execute()
}
