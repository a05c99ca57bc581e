package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/compliance-links-api/internal/repository"
	appErrors "github.com/noah-isme/compliance-links-api/pkg/errors"
)

// ResourceResolver loads the compliance data disclosed by a link.
type ResourceResolver interface {
	Fetch(ctx context.Context, resourceType string, ids []string) (interface{}, error)
}

// ResourceFetcher loads records of a single resource type.
type ResourceFetcher interface {
	Fetch(ctx context.Context, resourceType string, ids []string) (interface{}, error)
}

// ResourceFetcherFunc adapts a function to ResourceFetcher.
type ResourceFetcherFunc func(ctx context.Context, resourceType string, ids []string) (interface{}, error)

// Fetch calls f.
func (f ResourceFetcherFunc) Fetch(ctx context.Context, resourceType string, ids []string) (interface{}, error) {
	return f(ctx, resourceType, ids)
}

// ResourceRegistry routes fetches to the module owning each resource type.
type ResourceRegistry struct {
	mu       sync.RWMutex
	fetchers map[string]ResourceFetcher
}

// NewResourceRegistry constructs an empty registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{fetchers: make(map[string]ResourceFetcher)}
}

// Register binds resourceType to fetcher, replacing any previous binding.
func (r *ResourceRegistry) Register(resourceType string, fetcher ResourceFetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[normaliseResourceType(resourceType)] = fetcher
}

// Supports reports whether a fetcher exists for resourceType.
func (r *ResourceRegistry) Supports(resourceType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fetchers[normaliseResourceType(resourceType)]
	return ok
}

// Fetch implements ResourceResolver.
func (r *ResourceRegistry) Fetch(ctx context.Context, resourceType string, ids []string) (interface{}, error) {
	r.mu.RLock()
	fetcher, ok := r.fetchers[normaliseResourceType(resourceType)]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unsupported resource type %q", resourceType))
	}
	return fetcher.Fetch(ctx, resourceType, ids)
}

func normaliseResourceType(resourceType string) string {
	return strings.ToLower(strings.TrimSpace(resourceType))
}

type documentFinder interface {
	FindByIDs(ctx context.Context, resourceType string, ids []string) ([]repository.ComplianceDocument, error)
}

// ResolvedDocument is a single disclosed record.
type ResolvedDocument struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// DocumentFetcher serves resource types stored in the compliance_resources table.
type DocumentFetcher struct {
	repo documentFinder
}

// NewDocumentFetcher constructs a DocumentFetcher.
func NewDocumentFetcher(repo documentFinder) *DocumentFetcher {
	return &DocumentFetcher{repo: repo}
}

// Fetch returns the stored documents in link order.
func (f *DocumentFetcher) Fetch(ctx context.Context, resourceType string, ids []string) (interface{}, error) {
	docs, err := f.repo.FindByIDs(ctx, normaliseResourceType(resourceType), ids)
	if err != nil {
		return nil, appErrors.Unavailable(err, "failed to load shared records")
	}
	result := make([]ResolvedDocument, 0, len(docs))
	for _, doc := range docs {
		result = append(result, ResolvedDocument{ID: doc.ID, Payload: json.RawMessage(doc.Payload)})
	}
	return result, nil
}
