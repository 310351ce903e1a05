package scenario

import (
	"fmt"
	"strings"

	"github.com/qa21t02/dbjourney/internal/httpclient"
	"github.com/qa21t02/dbjourney/internal/markers"
)

// evaluate applies spec to resp and explains the first unmet condition.
func evaluate(spec markers.CheckSpec, resp httpclient.Response) (bool, string) {
	if resp.Err != nil {
		return false, "request failed: " + resp.Err.Error()
	}
	if resp.Status != spec.Status {
		return false, fmt.Sprintf("status %d, want %d", resp.Status, spec.Status)
	}
	for _, marker := range spec.Contains {
		if !strings.Contains(resp.Body, marker) {
			return false, fmt.Sprintf("missing %q", marker)
		}
	}
	for _, marker := range spec.Absent {
		if marker != "" && strings.Contains(resp.Body, marker) {
			return false, fmt.Sprintf("unexpected %q", marker)
		}
	}
	return true, ""
}
