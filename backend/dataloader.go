package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/sanskriti-setu/setu/backend/store"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

// DataLoaders holds the per-request loaders.
type DataLoaders struct {
	// SummaryLoader batches public user cards so a chat sidebar with many
	// peers costs one query.
	SummaryLoader *dataloader.Loader[int, store.UserSummary]
}

// NewDataLoaders creates fresh loaders over st.
func NewDataLoaders(st Store) *DataLoaders {
	return &DataLoaders{
		SummaryLoader: dataloader.NewBatchedLoader(
			summaryBatchFn(st),
			dataloader.WithWait[int, store.UserSummary](16*time.Millisecond),
			dataloader.WithBatchCapacity[int, store.UserSummary](200),
		),
	}
}

// GetDataLoadersFromContext retrieves dataloaders from context
func GetDataLoadersFromContext(ctx context.Context) *DataLoaders {
	if dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders); ok {
		return dl
	}
	return nil
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

// summaryBatchFn loads user cards for a batch of ids. Results line up with
// keys; an unknown id gets store.ErrNotFound.
func summaryBatchFn(st Store) dataloader.BatchFunc[int, store.UserSummary] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[store.UserSummary] {
		results := make([]*dataloader.Result[store.UserSummary], len(keys))

		found, err := st.Summaries(ctx, keys)
		for i, key := range keys {
			switch {
			case err != nil:
				results[i] = &dataloader.Result[store.UserSummary]{Error: err}
			case hasSummary(found, key):
				results[i] = &dataloader.Result[store.UserSummary]{Data: found[key]}
			default:
				results[i] = &dataloader.Result[store.UserSummary]{Error: fmt.Errorf("user %d: %w", key, store.ErrNotFound)}
			}
		}
		return results
	}
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

func hasSummary(m map[int]store.UserSummary, id int) bool {
	_, ok := m[id]
	return ok
}

// loadSummaries returns cards for ids using the request's loader when one is
// installed, and a direct query otherwise. Missing users are left out.
func loadSummaries(ctx context.Context, st Store, ids []int) (map[int]store.UserSummary, error) {
	dl := GetDataLoadersFromContext(ctx)
	if dl == nil {
		return st.Summaries(ctx, ids)
	}
	out := make(map[int]store.UserSummary, len(ids))
	values, errs := dl.SummaryLoader.LoadMany(ctx, ids)()
	for i, id := range ids {
		if errs != nil && errs[i] != nil {
			if isNotFound(errs[i]) {
				continue
			}
			return nil, errs[i]
		}
		out[id] = values[i]
	}
	return out, nil
}
