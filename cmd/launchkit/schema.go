package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/launchkit/internal/schema"
)

const schemaFileMode = 0o644

var (
	schemaOutputFlag  string
	schemaCompactFlag bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON Schema",
	Long: `Print the JSON Schema describing launchkit configuration files. Editors that
understand Taplo directives pick it up from the "#:schema" line written by
"launchkit config init".

Examples:
  launchkit schema
  launchkit schema --output launchkit.schema.json`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaOutputFlag, "output", "o", "", "Write the schema to a file")
	schemaCmd.Flags().BoolVar(&schemaCompactFlag, "compact", false, "Print without indentation")
}

func runSchema(cmd *cobra.Command, _ []string) error {
	data, err := schema.GenerateJSON(!schemaCompactFlag)
	if err != nil {
		return err
	}

	if schemaOutputFlag == "" {
		_, err = cmd.OutOrStdout().Write(data)

		return errors.Wrap(err, "failed to write schema")
	}

	//nolint:gosec // output path is provided by the user
	if err := os.WriteFile(schemaOutputFlag, data, schemaFileMode); err != nil {
		return errors.Wrapf(err, "failed to write schema to %s", schemaOutputFlag)
	}

	fmt.Fprintln(cmd.OutOrStdout(), schemaOutputFlag)

	return nil
}
