package templates

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	popupPolicyOnce sync.Once
	popupPolicy     *bluemonday.Policy
)

// Sanitize strips scripts, event handlers and other unsafe markup from a
// rendered popup body.
func Sanitize(html string) string {
	return popupSanitizer().Sanitize(html)
}

func popupSanitizer() *bluemonday.Policy {
	popupPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").Globally()
		popupPolicy = policy
	})
	return popupPolicy
}
