package types

import "fmt"

// Function identifies the computation a remote task runs. Go closures cannot
// cross a process boundary, so a function is either the name of a function
// registered on the worker side, or inline JavaScript source that the worker
// evaluates. Exactly one of the two must be set.
type Function struct {
	// Name is the registered function name (e.g. "getitem").
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Script is JavaScript source that must evaluate to a function,
	// e.g. "(x) => x * 2".
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// NamedFunc returns a Function referring to a registered function.
func NamedFunc(name string) Function {
	return Function{Name: name}
}

// ScriptFunc returns a Function backed by JavaScript source.
func ScriptFunc(src string) Function {
	return Function{Script: src}
}

// IsZero reports whether the function is unset.
func (f Function) IsZero() bool {
	return f.Name == "" && f.Script == ""
}

// Validate checks that exactly one of Name and Script is set.
func (f Function) Validate() error {
	if f.Name == "" && f.Script == "" {
		return fmt.Errorf("function requires a name or a script")
	}
	if f.Name != "" && f.Script != "" {
		return fmt.Errorf("function %q sets both name and script", f.Name)
	}
	return nil
}

func (f Function) String() string {
	if f.Name != "" {
		return f.Name
	}
	if len(f.Script) > 24 {
		return "script:" + f.Script[:24] + "..."
	}
	return "script:" + f.Script
}
