// Package rpc exposes the search engine over the JSON-over-TCP RPC layer
// and provides a typed client for it.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/proto"
)

// Service answers DocSearch RPCs from a catalog.
type Service struct {
	catalog      handler.Catalog
	executor     *executor.CatalogExecutor
	parser       *parser.Parser
	analyzer     tokenizer.Analyzer
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func NewService(cat handler.Catalog, exec *executor.CatalogExecutor, analyzer tokenizer.Analyzer, defaultLimit, maxResults int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Service{
		catalog:      cat,
		executor:     exec,
		parser:       parser.New(analyzer),
		analyzer:     analyzer,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "rpc-service"),
	}
}

// Register mounts every DocSearch method on s.
func (svc *Service) Register(s *grpc.Server) {
	s.Register(proto.MethodSearch, unary(svc.Search))
	s.Register(proto.MethodDocument, unary(svc.Document))
	s.Register(proto.MethodLookup, unary(svc.Lookup))
	s.Register(proto.MethodCollections, unary(svc.Collections))
	s.Register(proto.MethodHealth, unary(svc.Health))
}

func unary[Req any, Resp any](fn func(context.Context, *Req) (*Resp, error)) grpc.HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var req Req
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, fmt.Errorf("decoding params: %w", apperrors.ErrInvalidInput)
			}
		}
		return fn(ctx, &req)
	}
}

func (svc *Service) Search(ctx context.Context, req *proto.SearchRequest) (*proto.SearchResponse, error) {
	start := time.Now()
	limit := int(req.Limit)
	if limit <= 0 {
		limit = svc.defaultLimit
	}
	if limit > svc.maxResults {
		limit = svc.maxResults
	}

	resp := &proto.SearchResponse{
		Query:       req.Query,
		Collections: []string{},
		Results:     []proto.SearchResult{},
	}
	plan := svc.parser.Parse(req.Query)
	if plan.Empty() {
		return resp, nil
	}
	result, err := svc.executor.Execute(ctx, plan, req.Collection, limit)
	if err != nil {
		return nil, err
	}

	resp.Collections = result.Collections
	resp.TotalHits = int32(result.TotalHits)
	for _, d := range result.Results {
		resp.Results = append(resp.Results, proto.SearchResult{
			Collection: d.Collection,
			DocID:      int32(d.DocID),
			DocName:    d.DocName,
			Title:      d.Title,
			Score:      int32(d.Score),
			Weight:     d.Weight,
		})
	}
	resp.LatencyMs = time.Since(start).Milliseconds()
	svc.logger.Debug("rpc search", "query", req.Query, "total_hits", resp.TotalHits)
	return resp, nil
}

func (svc *Service) Document(_ context.Context, req *proto.DocumentRequest) (*proto.DocumentResponse, error) {
	store, err := svc.store(req.Collection)
	if err != nil {
		return nil, err
	}
	view, err := handler.Describe(req.Collection, store, index.DocID(req.DocID))
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

func (svc *Service) Lookup(_ context.Context, req *proto.LookupRequest) (*proto.LookupResponse, error) {
	if req.Term == "" {
		return nil, fmt.Errorf("term is required: %w", apperrors.ErrInvalidInput)
	}
	store, err := svc.store(req.Collection)
	if err != nil {
		return nil, err
	}
	view := handler.LookupTerm(svc.analyzer, req.Collection, store, req.Term)
	return &proto.LookupResponse{
		Collection: view.Collection,
		Term:       view.Term,
		Normalized: view.Normalized,
		Body:       toInt32(view.Body),
		Title:      toInt32(view.Title),
	}, nil
}

func (svc *Service) Collections(_ context.Context, _ *proto.CollectionsRequest) (*proto.CollectionsResponse, error) {
	stats := svc.catalog.Stats()
	resp := &proto.CollectionsResponse{Collections: make([]proto.CollectionStat, 0, len(stats))}
	for _, st := range stats {
		resp.Collections = append(resp.Collections, collectionStat(st))
	}
	return resp, nil
}

func (svc *Service) Health(_ context.Context, _ *struct{}) (*proto.HealthCheckResponse, error) {
	for _, e := range svc.catalog.Engines() {
		if _, err := e.Store(); err == nil {
			return &proto.HealthCheckResponse{Status: "SERVING"}, nil
		}
	}
	return &proto.HealthCheckResponse{Status: "NOT_SERVING"}, nil
}

func (svc *Service) store(collection string) (*index.Store, error) {
	e, err := svc.catalog.Get(collection)
	if err != nil {
		return nil, err
	}
	return e.Store()
}

func collectionStat(st indexer.Stats) proto.CollectionStat {
	cs := proto.CollectionStat{
		Name:      st.Name,
		Documents: int64(st.Documents),
		Terms:     int64(st.Terms),
		Checksum:  st.Checksum,
	}
	if !st.LoadedAt.IsZero() {
		cs.LoadedAt = st.LoadedAt.Unix()
	}
	return cs
}

func toInt32(docs []index.DocID) []int32 {
	out := make([]int32, len(docs))
	for i, d := range docs {
		out[i] = int32(d)
	}
	return out
}
