package sources

import "fmt"

// ProviderError is an isolated failure of one provider call.
type ProviderError struct {
	Provider string
	Query    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed for %q: %v", e.Provider, e.Query, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
