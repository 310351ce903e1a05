package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type HTTPStatusError struct{}

func (*HTTPStatusError) Error() string { return "status" }

func TestTransportErrorLabel(t *testing.T) {
	dial := func(err error) error {
		return &url.Error{Op: "Get", URL: "http://localhost:7000/registration", Err: &net.OpError{Op: "dial", Net: "tcp", Err: err}}
	}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"refused", dial(os.NewSyscallError("connect", syscall.ECONNREFUSED)), "Connection refused"},
		{"reset", dial(syscall.ECONNRESET), "Connection reset"},
		{"dns", dial(&net.DNSError{Err: "no such host", Name: "dbadmin"}), "DNS lookup error"},
		{"client timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutError{}}, "Timeout"},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), "Timeout"},
		{"canceled", context.Canceled, "Canceled"},
		{"eof", &url.Error{Op: "Post", URL: "http://x", Err: io.EOF}, "Connection closed"},
		{"body", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), "Connection closed"},
		{"other op error", dial(errors.New("connection refused")), "Network error"},
		{"plain", errors.New("boom"), "Error"},
		{"custom type", &HTTPStatusError{}, "HTTP Status Error (metrics)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransportErrorLabel(tt.err); got != tt.want {
				t.Errorf("TransportErrorLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "Unknown error"},
		{"*tls.RecordHeaderError", "Record Header Error (tls)"},
		{"*main.HTTPStatusError", "HTTP Status Error"},
		{"github.com/acme/pkg.TimeoutErr", "Timeout Err (pkg)"},
		{"*errors.errorString", "Error"},
		{"brotli.decodeError", "Decode Error (brotli)"},
	}
	for _, tt := range tests {
		if got := typeLabel(tt.in); got != tt.want {
			t.Errorf("typeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
