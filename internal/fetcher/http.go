package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/metadata"
	"github.com/rohmanhakim/crawlgate/pkg/failure"
	"github.com/rohmanhakim/crawlgate/pkg/retry"
)

/*
Responsibilities

- Perform the HTTP GET for a small text document (robots.txt)
- Apply the configured User-Agent
- Retry transport failures with backoff while the context allows
- Bound the body size

The fetcher never parses content; it only returns bytes and metadata.
*/

const defaultMaxBodyBytes = 500 * 1024

type HTTPDocumentFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	retryParam   retry.RetryParam
}

// NewHTTPDocumentFetcher builds a fetcher. A nil httpClient uses a client
// without its own timeout; deadlines come from the request context.
func NewHTTPDocumentFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
	maxBodyBytes int64,
	retryParam retry.RetryParam,
) *HTTPDocumentFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPDocumentFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
		retryParam:   retryParam,
	}
}

func (h *HTTPDocumentFetcher) FetchDocument(ctx context.Context, fetchURL string) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HTTPDocumentFetcher.FetchDocument"
	startTime := time.Now()

	outcome := retry.Retry(ctx, h.retryParam, func(ctx context.Context) (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchURL)
	})

	duration := time.Since(startTime)
	retryCount := outcome.Attempts() - 1
	if retryCount < 0 {
		retryCount = 0
	}

	if outcome.IsFailure() {
		h.metadataSink.RecordFetch(fetchURL, 0, duration, "", retryCount)
		h.recordFetchError(callerMethod, fetchURL, outcome.Err())

		// Surface the transport failure rather than the retry wrapper.
		var fetchErr *FetchError
		if errors.As(outcome.Err(), &fetchErr) {
			return FetchResult{}, fetchErr
		}
		return FetchResult{}, outcome.Err()
	}

	result := outcome.Value()
	h.metadataSink.RecordFetch(fetchURL, result.Code(), duration, result.ContentType(), retryCount)
	return result, nil
}

func (h *HTTPDocumentFetcher) recordFetchError(callerMethod string, fetchURL string, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToMetadataCause(fetchErr)
	}
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchURL),
		},
	)
}

func (h *HTTPDocumentFetcher) performFetch(ctx context.Context, fetchURL string) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/plain,text/html;q=0.5,*/*;q=0.1")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// context done; not retryable
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("request aborted: %v", err),
				Retryable: false,
				Cause:     ErrCauseTimeout,
			}
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes+1))
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	truncated := int64(len(body)) > h.maxBodyBytes
	if truncated {
		body = body[:h.maxBodyBytes]
	}

	return FetchResult{
		url:  fetchURL,
		body: body,
		meta: ResponseMeta{
			statusCode:  resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
			truncated:   truncated,
		},
	}, nil
}

var _ DocumentFetcher = (*HTTPDocumentFetcher)(nil)
