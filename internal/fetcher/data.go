package fetcher

type FetchResult struct {
	url  string
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() string {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

// Truncated reports whether the body was cut at the size limit.
func (f *FetchResult) Truncated() bool {
	return f.meta.truncated
}

func (f *FetchResult) IsSuccess() bool {
	return f.meta.statusCode >= 200 && f.meta.statusCode < 300
}

type ResponseMeta struct {
	statusCode  int
	contentType string
	truncated   bool
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url string,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:  statusCode,
			contentType: contentType,
		},
	}
}
