package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/support.txt
var supportRaw string

// Support returns the support-chat system instruction personalized with
// the caller's display name. An empty name falls back to a neutral form
// of address.
func Support(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return strings.ReplaceAll(strings.TrimSpace(supportRaw), "<name>", name)
}
