package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/rpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/proto"
)

type queryFlags struct {
	limit   int
	remote  string
	partial bool
	timeout time.Duration
}

var qf queryFlags

var queryCmd = &cobra.Command{
	Use:   "query WORD...",
	Short: "Rank the documents matching a query",
	Long: `Rank the documents of an index against a free-text query. Words are
normalised like the index build does; a word prefixed with '-' excludes
documents containing it.

  docsearch query -i searchindex.js python list
  docsearch query -i searchindex.js -- python -list
  docsearch query --remote localhost:9091 python`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&qf.limit, "limit", "n", 10, "maximum results to print")
	queryCmd.Flags().StringVar(&qf.remote, "remote", "", "query a running searcher at this RPC address")
	queryCmd.Flags().BoolVar(&qf.partial, "partial", false, "also match index terms containing a query word")
	queryCmd.Flags().DurationVar(&qf.timeout, "timeout", 5*time.Second, "RPC timeout")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(cmd.Context(), qf.timeout)
	defer cancel()

	var (
		resp *proto.SearchResponse
		err  error
	)
	if qf.remote != "" {
		resp, err = remoteQuery(ctx, query)
	} else {
		resp, err = localQuery(ctx, query)
	}
	if err != nil {
		return err
	}
	if flags.jsonOutput {
		return printJSON(os.Stdout, resp)
	}
	printResults(os.Stdout, resp)
	return nil
}

func remoteQuery(ctx context.Context, query string) (*proto.SearchResponse, error) {
	client, err := rpc.Dial(qf.remote, qf.timeout)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Search(ctx, &proto.SearchRequest{
		Query:      query,
		Collection: flags.collection,
		Limit:      int32(qf.limit),
	})
}

func localQuery(ctx context.Context, query string) (*proto.SearchResponse, error) {
	start := time.Now()
	name, store, err := openStore()
	if err != nil {
		return nil, err
	}
	w := cfg.Search.Weights
	engine := executor.New(name, store, executor.Options{
		Weights: ranker.Weights{
			Term:         w.Term,
			PartialTerm:  w.PartialTerm,
			Title:        w.Title,
			PartialTitle: w.PartialTitle,
		},
		PartialMatch: qf.partial || cfg.Search.PartialMatch,
	})
	result, err := engine.Execute(ctx, parser.New(analyzer()).Parse(query), qf.limit)
	if err != nil {
		return nil, err
	}

	resp := &proto.SearchResponse{
		Query:       query,
		Collections: result.Collections,
		TotalHits:   int32(result.TotalHits),
		Results:     make([]proto.SearchResult, 0, len(result.Results)),
		LatencyMs:   time.Since(start).Milliseconds(),
	}
	for _, d := range result.Results {
		resp.Results = append(resp.Results, proto.SearchResult{
			Collection: name,
			DocID:      int32(d.DocID),
			DocName:    d.DocName,
			Title:      d.Title,
			Score:      int32(d.Score),
			Weight:     d.Weight,
		})
	}
	return resp, nil
}

func printResults(w io.Writer, resp *proto.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "no documents match %q\n", resp.Query)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCOLLECTION\tDOC\tSCORE\tWEIGHT\tDOCNAME\tTITLE")
	for i, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.0f\t%s\t%s\n",
			i+1, r.Collection, r.DocID, r.Score, r.Weight, r.DocName, r.Title)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d matching documents\n", len(resp.Results), resp.TotalHits)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
