// Package wrapper provides middleware wrappers for CQRS query handlers.
//
// This package enables cross-cutting concerns such as tracing, logging, panic
// recovery, timeouts and request metadata to be applied to query handlers in a
// composable way, without changing the core read logic.
package wrapper

import (
	"fmt"
	"strings"
)

// nameOf returns the unqualified type name of q, without type arguments.
func nameOf(q any) string {
	fullType := strings.TrimPrefix(fmt.Sprintf("%T", q), "*")

	if i := strings.IndexByte(fullType, '['); i >= 0 {
		fullType = fullType[:i]
	}

	parts := strings.Split(fullType, ".")
	return parts[len(parts)-1]
}
