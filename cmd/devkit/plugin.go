package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/reglet-dev/devkit/application/session"
	"github.com/reglet-dev/devkit/application/template"
	"github.com/spf13/cobra"
)

func newPluginCmd(root *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage project plugins",
	}

	cmd.AddCommand(newPluginAddCmd(root))
	cmd.AddCommand(newPluginListCmd(root))
	cmd.AddCommand(newPluginInitCmd())

	return cmd
}

func newPluginAddCmd(root *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "add <dir>",
		Short: "Install and register a plugin",
		Long: `Copy the plugin in <dir> into the project's plugins directory, configure
it, register it and record it in the lock file. A plugin whose name is
already loaded is left as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			s, logger, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer closeSession(ctx, s, logger, &err)

			info, failures, err := s.AddPlugin(ctx, args[0])
			if err != nil {
				return err
			}
			reportFailures(ctx, logger, failures)
			cmd.Printf("%s %s: %s\n", info.Manifest.Name, info.Manifest.Version, pluginStatus(*info))
			return nil
		},
	}
}

type pluginListConfig struct {
	jsonOutput bool
}

// pluginListing is the JSON form of one `plugin list` row.
type pluginListing struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Dir         string `json:"dir"`
	Status      string `json:"status"`
	Registered  bool   `json:"registered"`
}

func newPluginListCmd(root *rootConfig) *cobra.Command {
	cfg := &pluginListConfig{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Long: `List the plugins installed in the project with their registration status.
Listing never configures plugins and never writes the lock file or the
settings file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			s, logger, err := root.open(cmd, session.WithReadOnly())
			if err != nil {
				return err
			}
			defer closeSession(ctx, s, logger, &err)
			return runPluginList(cmd, cfg, s.Plugins())
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runPluginList(cmd *cobra.Command, cfg *pluginListConfig, plugins []session.PluginInfo) error {
	rows := make([]pluginListing, 0, len(plugins))
	for _, p := range plugins {
		rows = append(rows, pluginListing{
			Name:        p.Record.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Dir:         p.Dir,
			Status:      pluginStatus(p),
			Registered:  p.Record.Initialized,
		})
	}

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(rows) == 0 {
		cmd.Println("no plugins installed")
		return nil
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tSTATUS\tDESCRIPTION")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Version, r.Status, r.Description)
	}
	_ = w.Flush()
	cmd.Print(sb.String())
	return nil
}

func pluginStatus(p session.PluginInfo) string {
	switch {
	case p.Skipped:
		return "skipped"
	case p.Record.Initialized:
		return "registered"
	default:
		return "pending"
	}
}

type pluginInitConfig struct {
	dir         string
	module      string
	description string
}

func newPluginInitCmd() *cobra.Command {
	cfg := &pluginInitConfig{}

	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new plugin project",
		Long: `Write the skeleton of a Go plugin: plugin.yaml, main.go, go.mod and a
Makefile building the WebAssembly module. Existing files are never
overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			dir := cfg.dir
			if dir == "" {
				dir = name
			}
			files, err := template.NewScaffolder().Scaffold(dir, template.Plugin{
				Name:        name,
				Description: cfg.description,
				Module:      cfg.module,
			})
			if err != nil {
				return err
			}
			for _, f := range files {
				cmd.Println("created " + filepath.Join(dir, f))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.dir, "dir", "", "target directory (default: ./<name>)")
	cmd.Flags().StringVar(&cfg.module, "module", "", "Go module path (default: <name>)")
	cmd.Flags().StringVar(&cfg.description, "description", "", "one-line plugin description")

	return cmd
}
