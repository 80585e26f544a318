package cmd

import (
	"fmt"
	"os"

	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/gaurav-prasanna/constpipe/core/ui"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the index is reachable and print its schema",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&flagIndex, "index", "", "Index name (default from config)")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if flagIndex != "" {
		cfg.Index.Name = flagIndex
	}

	engine, opts, err := openEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	schema, err := index.NewGateway(engine, opts...).GetSchema(ctx, cfg.Index.Name)
	if err != nil {
		return fmt.Errorf("index %s is not available: %w", cfg.Index.Name, err)
	}

	ui.New(os.Stdout).Success("index %s (%s engine), default sort %s", schema.Name, cfg.Index.Engine, schema.DefaultSort)
	for _, f := range schema.Fields {
		fmt.Printf("  %-18s %-9s%s\n", f.Name, f.Type, fieldFlags(f))
	}
	return nil
}

func fieldFlags(f index.Field) string {
	var s string
	for _, flag := range []struct {
		on   bool
		name string
	}{
		{f.Key, "key"}, {f.Facet, "facet"}, {f.Sort, "sort"}, {f.Search, "search"}, {f.Optional, "optional"},
	} {
		if flag.on {
			s += " " + flag.name
		}
	}
	return s
}
