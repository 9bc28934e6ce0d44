// Package config provides the strategy configuration consumed by the
// simulation engine: types, defaults, validation and file loading.
package config

// Validatable is implemented by every configuration section
type Validatable interface {
	Validate() error
}
