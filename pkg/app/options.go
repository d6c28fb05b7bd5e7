// Package app defines the option contracts used by the application
// bootstrap in pkg/infra/app.
package app

import "github.com/spf13/pflag"

// CliOptions is implemented by the top-level options struct of a command.
type CliOptions interface {
	// Flags returns the flags grouped by section for help output.
	Flags() NamedFlagSets
	// Validate validates the options.
	Validate() error
	// Complete completes the options with defaults.
	Complete() error
}

// PrintableOptions is an optional interface for options that can print themselves.
type PrintableOptions interface {
	String() string
}

// NamedFlagSets groups pflag.FlagSet objects by section name, preserving
// registration order for usage output.
type NamedFlagSets struct {
	// Order is the order in which the sections were registered.
	Order []string
	// FlagSets maps section name to its flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for the given section, creating it on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}
