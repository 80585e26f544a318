package cmd

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/spf13/cobra"
)

var flagLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the index",
	Long: `Search runs a query-string search against the embedded Bleve index and
prints the best matching documents, best first.

Examples:
  constpipe search "habeas corpus"
  constpipe search 'kind:ITEM +tags:saude' --limit 20`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&flagIndex, "index", "", "Index name (default from config)")
	searchCmd.Flags().IntVar(&flagLimit, "limit", 10, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if flagIndex != "" {
		cfg.Index.Name = flagIndex
	}

	engine, _, err := openEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	s, ok := engine.(searcher)
	if !ok {
		return fmt.Errorf("search is not supported by the %s engine", cfg.Index.Engine)
	}
	hits, err := s.Search(ctx, cfg.Index.Name, strings.Join(args, " "), flagLimit)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, h := range hits {
		fmt.Printf("%2d. %s [%s] %.3f\n    %s\n", i+1, h.FullReference, h.Kind, h.Score, snippet(h.Text, 160))
	}
	return nil
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var _ searcher = (*index.BleveEngine)(nil)
