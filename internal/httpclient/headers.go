package httpclient

import "net/http"

// browserHeaders is the header set a desktop Chrome sends on top-level navigation.
var browserHeaders = map[string]string{
	"sec-ch-ua":                 `" Not A;Brand";v="99", "Chromium";v="96", "Google Chrome";v="96"`,
	"sec-ch-ua-mobile":          "?0",
	"sec-ch-ua-platform":        `"Windows"`,
	"upgrade-insecure-requests": "1",
	"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9",
	"sec-fetch-site":            "same-origin",
	"sec-fetch-mode":            "navigate",
	"sec-fetch-user":            "?1",
	"sec-fetch-dest":            "document",
	"accept-encoding":           "gzip, deflate, br",
	"accept-language":           "ru-UA,ru-RU;q=0.9,ru;q=0.8,en-US;q=0.7,en;q=0.6",
}

// BrowserHeaders returns a copy of the browser-emulating header set.
func BrowserHeaders() http.Header {
	h := make(http.Header, len(browserHeaders))
	for key, value := range browserHeaders {
		h.Set(key, value)
	}
	return h
}
