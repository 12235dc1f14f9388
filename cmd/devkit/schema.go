package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/devkit/application/schema"
	"github.com/spf13/cobra"
)

type schemaConfig struct {
	out string
}

func newSchemaCmd() *cobra.Command {
	cfg := &schemaConfig{}

	cmd := &cobra.Command{
		Use:       "schema [" + strings.Join(schema.Names(), "|") + "]",
		Short:     "Print a JSON Schema",
		Long:      `Print the JSON Schema of the settings file or of plugin.yaml manifests.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: schema.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, cfg, args[0])
		},
	}

	cmd.Flags().StringVarP(&cfg.out, "out", "o", "", "write to file instead of stdout")

	return cmd
}

func runSchema(cmd *cobra.Command, cfg *schemaConfig, name string) error {
	generate, ok := schema.Documents()[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	doc, err := generate()
	if err != nil {
		return err
	}
	if cfg.out == "" {
		_, err = cmd.OutOrStdout().Write(append(doc, '\n'))
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.out), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.out, append(doc, '\n'), 0o600); err != nil {
		return err
	}
	cmd.Println("wrote " + cfg.out)
	return nil
}
