package metrics

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
	"unicode"
)

// TransportErrorLabel names the reason a request produced no response. The
// labels key the transport error breakdown in reports, so a backend that is
// down shows up as one line rather than one per error string.
func TransportErrorLabel(err error) string {
	if err == nil {
		return ""
	}

	var (
		dnsErr     *net.DNSError
		netErr     net.Error
		opErr      *net.OpError
		certErr    *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		corruptErr flate.CorruptInputError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.As(err, &dnsErr):
		return "DNS lookup error"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "Connection reset"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "Timeout"
	case errors.As(err, &certErr), errors.As(err, &authErr), errors.As(err, &hostErr):
		return "TLS error"
	case errors.Is(err, gzip.ErrHeader), errors.Is(err, gzip.ErrChecksum), errors.As(err, &corruptErr):
		return "Body decode error"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return "Connection closed"
	case errors.As(err, &opErr):
		return "Network error"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	return typeLabel(fmt.Sprintf("%T", err))
}

// typeLabel turns a Go type name such as "*tls.RecordHeaderError" into
// "Record Header Error (tls)".
func typeLabel(typeName string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if cleaned == "" {
		return "Unknown error"
	}
	if idx := strings.LastIndex(cleaned, "/"); idx != -1 {
		cleaned = cleaned[idx+1:]
	}

	pkg, name := "", cleaned
	if idx := strings.Index(name, "."); idx != -1 {
		pkg, name = name[:idx], name[idx+1:]
	}
	if pkg == "errors" || pkg == "fmt" {
		return "Error"
	}

	pretty := splitWords(name)
	if pretty == "" {
		pretty = name
	}
	if pkg != "" && pkg != "main" {
		return fmt.Sprintf("%s (%s)", pretty, pkg)
	}
	return pretty
}

// splitWords breaks a CamelCase identifier into capitalised words, keeping
// acronyms such as HTTP together.
func splitWords(name string) string {
	runes := []rune(name)
	var (
		words []string
		start int
	)
	flush := func(end int) {
		if end <= start {
			return
		}
		word := string(runes[start:end])
		if strings.ToUpper(word) != word {
			word = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
		words = append(words, word)
		start = end
	}
	for i := 1; i < len(runes); i++ {
		r, prev := runes[i], runes[i-1]
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		switch {
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower)):
			flush(i)
		case unicode.IsDigit(r) && !unicode.IsDigit(prev):
			flush(i)
		}
	}
	flush(len(runes))
	return strings.Join(words, " ")
}
