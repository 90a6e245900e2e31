package llm

import (
	"strings"

	"github.com/hashicorp/go-multierror"
)

type Setting struct {
	Name  string
	Value string
}

// RequireSettings returns one ConfigError per empty setting, joined into a
// single error, or nil when every setting has a value.
func RequireSettings(provider string, settings ...Setting) error {
	var result *multierror.Error
	for _, s := range settings {
		if strings.TrimSpace(s.Value) == "" {
			result = multierror.Append(result, &ConfigError{Provider: provider, Setting: s.Name})
		}
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
