package main

import "net/http"

// DataLoaderMiddleware installs fresh dataloaders in every request context,
// so cached entries never outlive the request.
func DataLoaderMiddleware(st Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithDataLoaders(r.Context(), NewDataLoaders(st))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
