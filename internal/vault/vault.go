// Package vault stores backup blobs.
package vault

import (
	"fmt"
	"path"
	"strings"
)

// checkName rejects names that could escape a vault's root.
func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || path.Clean(name) != name || strings.HasPrefix(name, "../") || name == ".." {
		return fmt.Errorf("invalid backup name: %q", name)
	}
	return nil
}
