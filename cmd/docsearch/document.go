package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/rpc"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/proto"
)

var remoteAddr string

var titleCmd = &cobra.Command{
	Use:   "title DOCID",
	Short: "Print a document's title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := fetchDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flags.jsonOutput {
			return printJSON(os.Stdout, map[string]string{"title": doc.Title, "plain_title": doc.PlainTitle})
		}
		fmt.Println(doc.PlainTitle)
		return nil
	},
}

var tocCmd = &cobra.Command{
	Use:   "toc DOCID",
	Short: "Print a document's table of contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := fetchDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flags.jsonOutput {
			return printJSON(os.Stdout, doc)
		}
		fmt.Printf("%s (%s)\n", doc.PlainTitle, doc.DocName)
		for _, s := range doc.TOC {
			if s.Depth == 0 {
				continue
			}
			anchor := ""
			if s.Anchor != "" {
				anchor = "  #" + s.Anchor
			}
			fmt.Printf("%s- %s%s\n", strings.Repeat("  ", int(s.Depth)-1), s.Title, anchor)
		}
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup TERM",
	Short: "Print the body and title postings of a term",
	Long: `Normalise TERM the way queries are normalised and print the documents
listed for it in the body and title term tables.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	for _, c := range []*cobra.Command{titleCmd, tocCmd, lookupCmd} {
		c.Flags().StringVar(&remoteAddr, "remote", "", "ask a running searcher at this RPC address")
		rootCmd.AddCommand(c)
	}
}

func parseDocID(raw string) (int32, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("document id %q: %w", raw, apperrors.ErrInvalidInput)
	}
	return int32(id), nil
}

func dialRemote() (*rpc.Client, context.CancelFunc, error) {
	client, err := rpc.Dial(remoteAddr, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Close() }, nil
}

func fetchDocument(ctx context.Context, raw string) (*proto.DocumentResponse, error) {
	id, err := parseDocID(raw)
	if err != nil {
		return nil, err
	}
	if remoteAddr != "" {
		client, done, err := dialRemote()
		if err != nil {
			return nil, err
		}
		defer done()
		return client.Document(ctx, &proto.DocumentRequest{Collection: flags.collection, DocID: id})
	}

	name, store, err := openStore()
	if err != nil {
		return nil, err
	}
	view, err := handler.Describe(name, store, index.DocID(id))
	if err != nil {
		return nil, err
	}
	resp := &proto.DocumentResponse{
		Collection: view.Collection,
		DocID:      int32(view.ID),
		DocName:    view.DocName,
		FileName:   view.FileName,
		Title:      view.Title,
		PlainTitle: view.PlainTitle,
		TOC:        make([]proto.Section, 0, len(view.TOC)),
	}
	for _, s := range view.TOC {
		resp.TOC = append(resp.TOC, proto.Section{Title: s.Title, Anchor: s.Anchor, Depth: int32(s.Depth)})
	}
	return resp, nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	var resp *proto.LookupResponse
	if remoteAddr != "" {
		client, done, err := dialRemote()
		if err != nil {
			return err
		}
		defer done()
		resp, err = client.Lookup(cmd.Context(), &proto.LookupRequest{Collection: flags.collection, Term: args[0]})
		if err != nil {
			return err
		}
	} else {
		name, store, err := openStore()
		if err != nil {
			return err
		}
		view := handler.LookupTerm(analyzer(), name, store, args[0])
		resp = &proto.LookupResponse{
			Collection: view.Collection,
			Term:       view.Term,
			Normalized: view.Normalized,
			Body:       toInt32(view.Body),
			Title:      toInt32(view.Title),
		}
	}

	if flags.jsonOutput {
		return printJSON(os.Stdout, resp)
	}
	fmt.Printf("term:  %s (normalised %q)\n", resp.Term, resp.Normalized)
	fmt.Printf("body:  %v\n", resp.Body)
	fmt.Printf("title: %v\n", resp.Title)
	return nil
}

func toInt32(docs []index.DocID) []int32 {
	out := make([]int32, len(docs))
	for i, d := range docs {
		out[i] = int32(d)
	}
	return out
}
