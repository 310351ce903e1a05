package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// maxBodyBytes bounds how much of a page is kept for assertions.
const maxBodyBytes = 16 << 20

// Response is the part of an HTTP exchange the journey inspects. A transport
// failure leaves Status at 0 and Body empty with Err set.
type Response struct {
	Status  int
	Body    string
	Header  http.Header
	Latency time.Duration
	Err     error
}

// Failed reports whether the exchange did not produce a response.
func (r Response) Failed() bool {
	return r.Err != nil
}

// Do sends req and reads the whole decoded body.
func Do(client *http.Client, req *http.Request) Response {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Response{Latency: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	latency := time.Since(start)
	if err != nil {
		return Response{Latency: latency, Err: fmt.Errorf("read body: %w", err)}
	}
	return Response{
		Status:  resp.StatusCode,
		Body:    body,
		Header:  resp.Header,
		Latency: latency,
	}
}

// readBody undoes the Content-Encoding the server chose. The transport only
// decompresses on its own when it picked the Accept-Encoding itself.
func readBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", err
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
