package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// HTML strips scripts, event handlers and unsafe URLs from user supplied
// rich text while keeping ordinary formatting.
func HTML(s string) string {
	if s == "" {
		return ""
	}
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return policy.Sanitize(s)
}
