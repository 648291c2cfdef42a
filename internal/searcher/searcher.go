package searcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/coderecall/internal/backend"
	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/internal/graph"
	"github.com/dshills/coderecall/internal/logging"
	"github.com/dshills/coderecall/internal/navigation"
	"github.com/dshills/coderecall/internal/query"
	"github.com/dshills/coderecall/pkg/types"
)

const (
	DefaultLimit          = 10
	MaxLimit              = 100
	DefaultBackendTimeout = 5 * time.Second
	DefaultCacheSize      = 1000
	DefaultCacheTTL       = time.Hour
)

var (
	ErrInvalidRequest = errors.New("invalid search request")
	ErrUnknownMode    = errors.New("unknown search mode")
	errBackendPanic   = errors.New("backend panicked")
)

// NavigatorFactory opens a navigation session for an index. The searcher
// closes the session when the graph search is done.
type NavigatorFactory func(ctx context.Context, index types.IndexHandle) (navigation.Session, error)

// Config holds searcher-wide settings. Zero values take the defaults.
type Config struct {
	Weights        fusion.Weights // default balanced preset
	K              float64
	BoostFactor    float64
	RerankTopN     int
	BackendTimeout time.Duration
	CacheSize      int
	CacheTTL       time.Duration

	Reranker  fusion.Reranker  // optional
	Navigator NavigatorFactory // optional, required for graph mode
	Graph     graph.Config
	Bridge    navigation.CacheConfig

	Logger logrus.FieldLogger
}

// Options are per-request settings
type Options struct {
	Mode  Mode
	Limit int // 0 means DefaultLimit

	EnableExact  bool
	EnableFuzzy  bool
	EnableVector bool
	EnableSparse bool

	Adaptive     bool // tilt weights by query shape
	BoostSymbols bool
	Rerank       bool

	Preset  string         // weight preset; empty uses the searcher's weights
	Weights fusion.Weights // overrides Preset when set

	BackendTimeout time.Duration // per backend, 0 uses the searcher default
	Deadline       time.Duration // bound on the whole fan-out, 0 for none
	UseCache       bool
}

// DefaultOptions enables every backend, adaptive weighting and symbol
// boosting
func DefaultOptions() Options {
	return Options{
		Mode:         ModeHybrid,
		Limit:        DefaultLimit,
		EnableExact:  true,
		EnableFuzzy:  true,
		EnableVector: true,
		EnableSparse: true,
		Adaptive:     true,
		BoostSymbols: true,
	}
}

// BackendStat reports how one backend fared in a request
type BackendStat struct {
	Source   types.Source
	Hits     int
	Duration time.Duration
	Error    string
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	RequestID     string
	Query         string
	ExpandedQuery string
	Mode          Mode
	Shape         string
	Weights       fusion.Weights
	Results       []types.FusedHit
	Backends      []BackendStat
	Warnings      []string
	Reranked      bool
	Duration      time.Duration
	CacheHit      bool
}

// Searcher fans a query out to the registered backends and fuses the results
type Searcher struct {
	backends    map[types.Source]backend.Backend
	registered  map[types.Source]bool
	cfg         Config
	log         logrus.FieldLogger
	bridgeCache *navigation.Cache

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
	now     func() time.Time
}

// New creates a Searcher over the given backends. A later backend with the
// same source replaces an earlier one.
func New(cfg Config, backends ...backend.Backend) (*Searcher, error) {
	if cfg.Weights == nil {
		cfg.Weights = fusion.DefaultWeights()
	}
	if cfg.K <= 0 {
		cfg.K = fusion.DefaultK
	}
	if cfg.BoostFactor <= 0 {
		cfg.BoostFactor = fusion.DefaultBoostFactor
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = fusion.DefaultRerankTopN
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = DefaultBackendTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	cache, err := lru.New[[32]byte, *cacheEntry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	bridgeCache, err := navigation.NewCache(cfg.Bridge)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		backends:    make(map[types.Source]backend.Backend),
		registered:  make(map[types.Source]bool),
		cfg:         cfg,
		log:         logging.OrDiscard(cfg.Logger).WithField("component", "searcher"),
		bridgeCache: bridgeCache,
		cache:       cache,
		now:         time.Now,
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		s.backends[b.Source()] = b
		s.registered[b.Source()] = true
	}
	return s, nil
}

// Search runs a query against index. Backend failures never fail the
// request; they show up as empty sources in the response. Only invalid
// arguments return an error.
func (s *Searcher) Search(ctx context.Context, index types.IndexHandle, q string, opts Options) (*SearchResponse, error) {
	start := s.now()

	if err := s.validate(q, &opts); err != nil {
		return nil, err
	}
	base, err := s.weightsFor(opts)
	if err != nil {
		return nil, err
	}

	if opts.UseCache {
		if cached := s.checkCache(index, q, opts, base); cached != nil {
			cached.CacheHit = true
			cached.Duration = s.now().Sub(start)
			return cached, nil
		}
	}

	requestID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"mode":       opts.Mode,
	})

	plan := planFor(opts.Mode, opts, s.registered)
	resp := &SearchResponse{
		RequestID:     requestID,
		Query:         q,
		ExpandedQuery: query.Expand(q),
		Mode:          opts.Mode,
		Shape:         query.Classify(q).String(),
		Results:       []types.FusedHit{},
	}
	if plan.fallback {
		msg := "vector backend unavailable, pure_vector search fell back to exact"
		log.Warn(msg)
		resp.Warnings = append(resp.Warnings, msg)
	}

	weights := base
	if opts.Adaptive {
		weights = fusion.AdaptiveWeights(q, base)
	}
	resp.Weights = weights

	if plan.graph {
		resp.Results, resp.Backends = s.graphSearch(ctx, log, index, q, opts, plan, weights)
	} else {
		lists, stats := s.fanOut(ctx, log, index, q, opts, plan.sources)
		resp.Backends = stats
		resp.Results, resp.Reranked = s.fuse(ctx, log, q, lists, weights, opts)
	}

	resp.Duration = s.now().Sub(start)
	log.WithFields(logrus.Fields{
		"results":  len(resp.Results),
		"duration": resp.Duration,
	}).Debug("search complete")

	if opts.UseCache && len(resp.Results) > 0 {
		s.storeInCache(index, q, opts, base, resp)
	}
	return resp, nil
}

// validate checks arguments and fills defaults
func (s *Searcher) validate(q string, opts *Options) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidRequest)
	}
	if opts.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}

	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return err
	}
	opts.Mode = mode

	if opts.BackendTimeout <= 0 {
		opts.BackendTimeout = s.cfg.BackendTimeout
	}
	return nil
}

func (s *Searcher) weightsFor(opts Options) (fusion.Weights, error) {
	switch {
	case opts.Weights != nil:
		return opts.Weights.Clone(), nil
	case opts.Preset != "":
		w, err := fusion.Preset(opts.Preset)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return w, nil
	default:
		return s.cfg.Weights.Clone(), nil
	}
}

// candidates is how many hits each backend is asked for
func (s *Searcher) candidates(opts Options) int {
	n := opts.Limit * 2
	if opts.Rerank && s.cfg.Reranker != nil && n < s.cfg.RerankTopN {
		n = s.cfg.RerankTopN
	}
	return n
}

// queryFor returns what a source is sent: lexical backends get the
// expanded query, vector gets it verbatim
func queryFor(src types.Source, q string) string {
	if src == types.SourceVector {
		return q
	}
	return query.Expand(q)
}

// fanOut runs the sources in parallel, each under its own timeout and
// detached from the caller's cancellation
func (s *Searcher) fanOut(ctx context.Context, log logrus.FieldLogger, index types.IndexHandle, q string, opts Options, sources []types.Source) (map[types.Source][]types.Hit, []BackendStat) {
	lists := make(map[types.Source][]types.Hit, len(sources))
	if len(sources) == 0 {
		return lists, []BackendStat{}
	}

	parent := context.WithoutCancel(ctx)
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		parent, cancel = context.WithTimeout(parent, opts.Deadline)
		defer cancel()
	}

	limit := s.candidates(opts)
	runs := make([]backendRun, len(sources))

	var g errgroup.Group
	g.SetLimit(len(sources))
	for i, src := range sources {
		g.Go(func() error {
			runs[i] = s.runBackend(parent, log, index, src, queryFor(src, q), limit, opts.BackendTimeout)
			return nil
		})
	}
	_ = g.Wait()

	stats := make([]BackendStat, len(sources))
	for i, src := range sources {
		lists[src] = runs[i].hits
		stats[i] = runs[i].stat(src)
	}
	return lists, stats
}

// backendRun is the outcome of one backend call
type backendRun struct {
	hits     []types.Hit
	duration time.Duration
	err      error
}

func (r backendRun) stat(src types.Source) BackendStat {
	st := BackendStat{Source: src, Hits: len(r.hits), Duration: r.duration}
	if r.err != nil {
		st.Error = r.err.Error()
	}
	return st
}

// runBackend calls one backend. Errors, panics and timeouts are logged and
// yield an empty list.
func (s *Searcher) runBackend(ctx context.Context, log logrus.FieldLogger, index types.IndexHandle, src types.Source, q string, limit int, timeout time.Duration) backendRun {
	start := s.now()
	b, ok := s.backends[src]
	if !ok {
		return backendRun{hits: []types.Hit{}}
	}

	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan backendRun, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- backendRun{err: fmt.Errorf("%w: %v", errBackendPanic, r)}
			}
		}()
		hits, err := b.Search(bctx, index, q, limit)
		done <- backendRun{hits: hits, err: err}
	}()

	var run backendRun
	select {
	case run = <-done:
	case <-bctx.Done():
		run = backendRun{err: bctx.Err()}
	}
	run.duration = s.now().Sub(start)

	if run.err != nil {
		log.WithError(run.err).WithField("backend", src).Warn("backend failed, continuing without it")
		run.hits = []types.Hit{}
	}
	if run.hits == nil {
		run.hits = []types.Hit{}
	}
	return run
}

// fuse runs the post fan-in pipeline: RRF, symbol boost, optional rerank,
// truncation
func (s *Searcher) fuse(ctx context.Context, log logrus.FieldLogger, q string, lists map[types.Source][]types.Hit, weights fusion.Weights, opts Options) ([]types.FusedHit, bool) {
	fused := fusion.Fuse(lists, weights, s.cfg.K)
	if opts.BoostSymbols {
		fused = fusion.BoostSymbols(fused, q, s.cfg.BoostFactor)
	}

	if !opts.Rerank || s.cfg.Reranker == nil || len(fused) == 0 {
		return fusion.Truncate(fused, opts.Limit), false
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.BackendTimeout)
	defer cancel()
	out, err := fusion.Rerank(rctx, s.cfg.Reranker, q, fused, s.cfg.RerankTopN, opts.Limit)
	if err != nil {
		log.WithError(err).Debug("rerank failed, keeping fused order")
		return out, false
	}
	return out, true
}

// graphSearch finds seeds through the seed chain and expands them through
// the navigation service. Every failure degrades to an empty result.
func (s *Searcher) graphSearch(ctx context.Context, log logrus.FieldLogger, index types.IndexHandle, q string, opts Options, plan modeConfig, weights fusion.Weights) ([]types.FusedHit, []BackendStat) {
	stats := []BackendStat{}
	parent := context.WithoutCancel(ctx)
	limit := s.candidates(opts)

	type seedSource struct {
		name types.Source
		fn   func() backendRun
	}
	chain := make([]seedSource, 0, len(plan.sources))
	for _, src := range plan.sources {
		chain = append(chain, seedSource{name: src, fn: func() backendRun {
			return s.runBackend(parent, log, index, src, queryFor(src, q), limit, opts.BackendTimeout)
		}})
	}

	var seeds []types.Hit
	for _, step := range chain {
		run := step.fn()
		stats = append(stats, run.stat(step.name))
		if len(run.hits) > 0 {
			seeds = run.hits
			log.WithFields(logrus.Fields{"seed_source": step.name, "seeds": len(seeds)}).Debug("graph seeds found")
			break
		}
	}
	if len(seeds) == 0 {
		return []types.FusedHit{}, stats
	}
	if len(seeds) > opts.Limit {
		seeds = seeds[:opts.Limit]
	}

	start := s.now()
	nodes, err := s.expandSeeds(parent, log, index, seeds)
	st := BackendStat{Source: types.SourceGraph, Hits: len(nodes), Duration: s.now().Sub(start)}
	if err != nil {
		st.Error = err.Error()
	}
	stats = append(stats, st)

	return graphHits(nodes, weights.Get(types.SourceGraph), s.cfg.K, opts.Limit), stats
}

// expandSeeds returns the non-seed graph nodes in BFS order
func (s *Searcher) expandSeeds(ctx context.Context, log logrus.FieldLogger, index types.IndexHandle, seeds []types.Hit) ([]graph.Node, error) {
	if s.cfg.Navigator == nil {
		log.Warn("graph search requested but no navigator configured")
		return nil, errors.New("no navigator configured")
	}

	session, err := s.cfg.Navigator(ctx, index)
	if err != nil {
		log.WithError(err).Warn("navigation service unavailable")
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Debug("failed to close navigation session")
		}
	}()

	gcfg := s.cfg.Graph
	if gcfg.Logger == nil {
		gcfg.Logger = log
	}
	builder := graph.NewBuilder(navigation.NewCachedBridge(session, s.bridgeCache, index.Root), gcfg)

	graphSeeds := make([]graph.Seed, len(seeds))
	for i, h := range seeds {
		graphSeeds[i] = graph.SeedFromHit(h)
	}

	g, err := builder.Build(ctx, graphSeeds)
	if g == nil {
		log.WithError(err).Warn("graph build failed")
		return nil, err
	}
	if err != nil {
		log.WithError(err).Warn("graph build stopped early, using partial graph")
	}

	var out []graph.Node
	for _, n := range g.Nodes() {
		if n.Depth > 0 {
			out = append(out, n)
		}
	}
	return out, err
}

// graphHits ranks nodes in BFS order with the RRF contribution of the
// graph source
func graphHits(nodes []graph.Node, weight, k float64, limit int) []types.FusedHit {
	if k <= 0 {
		k = fusion.DefaultK
	}
	out := make([]types.FusedHit, 0, len(nodes))
	for i, n := range nodes {
		rank := i + 1
		score := weight / (k + float64(rank))
		out = append(out, types.FusedHit{
			Hit: types.Hit{
				Path:       n.Path,
				Symbol:     n.Name,
				SymbolKind: string(n.Kind),
				StartLine:  n.Range.Start.Line,
				EndLine:    n.Range.End.Line,
				Score:      score,
				Source:     types.SourceGraph,
				Metadata: map[string]any{
					"depth":  n.Depth,
					"cyclic": n.Cyclic,
					"detail": n.Detail,
				},
			},
			Score:       score,
			SourceRanks: map[types.Source]int{types.SourceGraph: rank},
		})
	}
	return fusion.Truncate(out, limit)
}

// BridgeCacheStats reports navigation cache activity
func (s *Searcher) BridgeCacheStats() navigation.CacheStats {
	return s.bridgeCache.Stats()
}

// Sources lists the registered backend sources in fusion order
func (s *Searcher) Sources() []types.Source {
	out := make([]types.Source, 0, len(s.backends))
	for src := range s.backends {
		out = append(out, src)
	}
	return types.OrderSources(out)
}
