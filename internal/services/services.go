// package services defines source adapters that fetch content pages from remote providers
//
// YouTube Data API, RSS/Atom feeds, social platforms
package services

import (
	"context"

	"github.com/desertthunder/aggx/internal/models"
)

// Adapter fetches one page of items for a container from its provider.
type Adapter[T any] interface {
	// Name returns the provider name used in logs and reports.
	Name() string

	// FetchPage retrieves the page identified by token. An empty token requests the first page.
	// An empty [Page.NextToken] means the container is exhausted.
	FetchPage(ctx context.Context, src models.Source, token string) (*Page[T], error)
}

// Page is one batch of items returned by an [Adapter].
type Page[T any] struct {
	Items     []T
	NextToken string
	// Container carries container metadata discovered while fetching, when the provider returns any.
	Container *models.ContainerMeta
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// clampPageSize keeps page sizes within what providers accept.
func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	default:
		return n
	}
}
