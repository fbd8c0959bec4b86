package fetcher

import (
	"context"

	"github.com/rohmanhakim/crawlgate/pkg/failure"
)

// DocumentFetcher retrieves a single document. Any HTTP status is a result;
// only failures to obtain a response are errors.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, fetchURL string) (FetchResult, failure.ClassifiedError)
}
