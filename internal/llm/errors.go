package llm

import (
	"errors"
	"fmt"
)

var (
	ErrNotSupported   = errors.New("capability not supported")
	ErrMissingSetting = errors.New("missing setting")
)

type CapabilityError struct {
	Provider   string
	Capability Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s generation: %s", e.Provider, e.Capability, ErrNotSupported)
}

func (e *CapabilityError) Unwrap() error {
	return ErrNotSupported
}

type ConfigError struct {
	Provider string
	Setting  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Provider, ErrMissingSetting, e.Setting)
}

func (e *ConfigError) Unwrap() error {
	return ErrMissingSetting
}
