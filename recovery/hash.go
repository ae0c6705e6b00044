package recovery

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint computes the deduplication hash for an error: a stable
// function of the error's dynamic type, message, service, and operation.
// Two failures with the same fingerprint are the same error for
// deduplication and recovery-caching purposes.
func Fingerprint(err error, service, operation string) string {
	var typeName, message string
	if err != nil {
		typeName = fmt.Sprintf("%T", err)
		message = err.Error()
	}

	h := xxhash.New()
	_, _ = h.WriteString(typeName)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(message)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(service)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(operation)
	return fmt.Sprintf("%016x", h.Sum64())
}
