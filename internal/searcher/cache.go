package searcher

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/pkg/types"
)

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// computeQueryHash keys a request by everything that shapes its results
func computeQueryHash(index types.IndexHandle, q string, opts Options, weights fusion.Weights) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%d|%s|%s|%s|%d", index.ProjectID, index.Root, q, opts.Mode, opts.Limit)
	fmt.Fprintf(&data, "|e=%t,f=%t,v=%t,s=%t", opts.EnableExact, opts.EnableFuzzy, opts.EnableVector, opts.EnableSparse)
	fmt.Fprintf(&data, "|adaptive=%t,boost=%t,rerank=%t", opts.Adaptive, opts.BoostSymbols, opts.Rerank)
	data.WriteString("|w:")
	data.WriteString(weights.String())
	return sha256.Sum256([]byte(data.String()))
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(index types.IndexHandle, q string, opts Options, weights fusion.Weights) *SearchResponse {
	hash := computeQueryHash(index, q, opts, weights)

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if s.now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves a copy of response
func (s *Searcher) storeInCache(index types.IndexHandle, q string, opts Options, weights fusion.Weights, response *SearchResponse) {
	hash := computeQueryHash(index, q, opts, weights)
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: s.now().Add(s.cfg.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Called after reindexing.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResponse deep-copies results so cached entries cannot be
// mutated by callers
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Weights = src.Weights.Clone()
	dst.Backends = append([]BackendStat(nil), src.Backends...)
	dst.Warnings = append([]string(nil), src.Warnings...)
	dst.Results = make([]types.FusedHit, len(src.Results))
	for i, r := range src.Results {
		c := r
		c.Hit = r.Hit.Clone()
		if r.SourceRanks != nil {
			c.SourceRanks = make(map[types.Source]int, len(r.SourceRanks))
			for k, v := range r.SourceRanks {
				c.SourceRanks[k] = v
			}
		}
		if r.RerankScore != nil {
			score := *r.RerankScore
			c.RerankScore = &score
		}
		dst.Results[i] = c
	}
	return &dst
}
