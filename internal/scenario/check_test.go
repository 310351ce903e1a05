package scenario

import (
	"errors"
	"strings"
	"testing"

	"github.com/qa21t02/dbjourney/internal/httpclient"
	"github.com/qa21t02/dbjourney/internal/markers"
)

func TestEvaluate(t *testing.T) {
	spec := markers.CheckSpec{Status: 200, Contains: []string{"User Preset", "API's keys"}, Absent: []string{"It's your"}}
	tests := []struct {
		name       string
		resp       httpclient.Response
		wantPass   bool
		wantReason string
	}{
		{"all conditions hold", httpclient.Response{Status: 200, Body: "User Preset API's keys"}, true, ""},
		{"wrong status", httpclient.Response{Status: 500, Body: "User Preset API's keys"}, false, "status 500"},
		{"missing marker", httpclient.Response{Status: 200, Body: "User Preset"}, false, "missing"},
		{"absent marker present", httpclient.Response{Status: 200, Body: "User Preset API's keys It's your"}, false, "unexpected"},
		{"transport error", httpclient.Response{Err: errors.New("dial tcp: refused")}, false, "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, reason := evaluate(spec, tt.resp)
			if passed != tt.wantPass {
				t.Fatalf("evaluate() = %v, want %v (%s)", passed, tt.wantPass, reason)
			}
			if !strings.Contains(reason, tt.wantReason) {
				t.Fatalf("reason %q does not mention %q", reason, tt.wantReason)
			}
		})
	}
}

func TestCheckFailuresError(t *testing.T) {
	err := &CheckFailures{
		Login:  "1@testv.com",
		Checks: 19,
		Failures: []CheckFailure{
			{Check: markers.LoadHome, Reason: "status 0, want 200"},
			{Check: markers.CreateTable, Reason: `missing "DDL/DML performed"`},
		},
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "2 of 19 checks failed") {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, markers.CreateTable) {
		t.Fatalf("message should list failed checks: %q", msg)
	}
}
