package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
)

// BodySource produces replayable request bodies so redirects can resend them.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
	ContentType() string
}

// NewFormBody encodes values as application/x-www-form-urlencoded. Keys are
// sorted by url.Values.Encode, so the same form always yields the same bytes.
func NewFormBody(values url.Values) BodySource {
	if values == nil {
		return emptyBodySource{}
	}
	return &inlineBodySource{
		data:        []byte(values.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
}

type inlineBodySource struct {
	data        []byte
	contentType string
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

func (s *inlineBodySource) ContentType() string {
	return s.contentType
}

type emptyBodySource struct{}

func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return http.NoBody, nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}

func (emptyBodySource) ContentType() string {
	return ""
}
