package knowledge

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a knowledge base that could not be loaded or
// failed validation. Callers must not start serving when they get one.
type ConfigurationError struct {
	Source   string
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "knowledge base %q", e.Source)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Problems) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Problems, "; "))
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
