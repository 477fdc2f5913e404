// Package pipeline 将 YAML 管道定义装配成可运行的数据流图。
// 定义由 source、有序 op 列表和 sink 组成；scatter 和 gather 是显式
// 算子，二者之间的函数算子在执行器上运行。
package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/dataflow-engine/pkg/types"
)

// Definition is a YAML pipeline definition.
type Definition struct {
	Name   string   `yaml:"name"`
	Source Source   `yaml:"source"`
	Ops    []OpSpec `yaml:"ops"`
	Sink   Sink     `yaml:"sink"`
}

// Source describes where items come from.
type Source struct {
	// Type is one of "values", "textfile", "filenames".
	Type string `yaml:"type"`

	// Values are the items to emit for a values source.
	Values []any `yaml:"values,omitempty"`

	// Path is the file path (textfile) or directory (filenames).
	Path string `yaml:"path,omitempty"`

	// Poll is the directory poll interval for a filenames source.
	Poll time.Duration `yaml:"poll,omitempty"`
}

// Sink describes where results go.
type Sink struct {
	// Type is one of "collect", "log". Empty means "log".
	Type string `yaml:"type"`
}

// FunctionRef names a registered function or carries a JS script.
type FunctionRef struct {
	Name   string `yaml:"name,omitempty"`
	Script string `yaml:"script,omitempty"`
}

// Function converts the reference to a types.Function.
func (f FunctionRef) Function() types.Function {
	if f.Script != "" {
		return types.ScriptFunc(f.Script)
	}
	return types.NamedFunc(f.Name)
}

// OpSpec is one operator in the chain. Which fields apply depends on Op.
type OpSpec struct {
	// Op is the operator name: scatter, gather, map, starmap, filter,
	// accumulate, buffer, flatten, latest, partition, sliding_window,
	// timed_window, rate_limit, delay, pluck.
	Op string `yaml:"op"`

	// Function applies to map, starmap, filter, accumulate.
	Function FunctionRef `yaml:"function,omitempty"`

	// Args are extra arguments appended after the item (map, filter).
	Args []any `yaml:"args,omitempty"`

	// Start is the initial accumulator state.
	Start any `yaml:"start,omitempty"`

	// ReturnsState marks an accumulate function that returns a
	// [state, emitted] pair.
	ReturnsState bool `yaml:"returns_state,omitempty"`

	// N applies to buffer, partition, sliding_window.
	N int `yaml:"n,omitempty"`

	// Interval applies to timed_window, rate_limit, delay.
	Interval time.Duration `yaml:"interval,omitempty"`

	// Path is the jsonpath expression for pluck.
	Path string `yaml:"path,omitempty"`
}

// functionOps 是只能出现在 scatter/gather 之间的函数算子。
var functionOps = map[string]bool{
	"map":        true,
	"starmap":    true,
	"filter":     true,
	"accumulate": true,
}

var structuralOps = map[string]bool{
	"buffer":         true,
	"flatten":        true,
	"latest":         true,
	"partition":      true,
	"sliding_window": true,
	"timed_window":   true,
	"rate_limit":     true,
	"delay":          true,
	"pluck":          true,
}

// Parse parses a YAML pipeline definition from bytes and validates it.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("解析管道定义失败: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile loads a pipeline definition from a YAML file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取管道定义失败: %w", err)
	}
	return Parse(data)
}

// Validate checks structural constraints: the source is well formed,
// every op is known with its required fields set, scatter/gather pair up,
// and function ops only appear between them.
func (d *Definition) Validate() error {
	if err := d.Source.validate(); err != nil {
		return err
	}

	remote := false
	for i, op := range d.Ops {
		field := fmt.Sprintf("ops[%d]", i)
		switch {
		case op.Op == "scatter":
			if remote {
				return fmt.Errorf("%s: scatter inside a scattered section", field)
			}
			remote = true
		case op.Op == "gather":
			if !remote {
				return fmt.Errorf("%s: gather without a preceding scatter", field)
			}
			remote = false
		case functionOps[op.Op]:
			if !remote {
				return fmt.Errorf("%s: %s requires a preceding scatter; computations run on the executor", field, op.Op)
			}
			if err := op.validateFunction(field); err != nil {
				return err
			}
		case structuralOps[op.Op]:
			if op.Op == "pluck" && remote {
				return fmt.Errorf("%s: pluck needs concrete values; gather before plucking", field)
			}
			if err := op.validateStructural(field); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown op %q", field, op.Op)
		}
	}
	if remote {
		return fmt.Errorf("pipeline ends inside a scattered section; add a gather op")
	}

	switch d.Sink.Type {
	case "", "log", "collect":
	default:
		return fmt.Errorf("sink.type: unknown sink %q", d.Sink.Type)
	}
	return nil
}

func (s *Source) validate() error {
	switch s.Type {
	case "values":
		if len(s.Values) == 0 {
			return fmt.Errorf("source.values: values source needs at least one value")
		}
	case "textfile", "filenames":
		if s.Path == "" {
			return fmt.Errorf("source.path: %s source needs a path", s.Type)
		}
	case "":
		return fmt.Errorf("source.type: source type is required")
	default:
		return fmt.Errorf("source.type: unknown source %q", s.Type)
	}
	return nil
}

func (o *OpSpec) validateFunction(field string) error {
	fn := o.Function.Function()
	if err := fn.Validate(); err != nil {
		return fmt.Errorf("%s.function: %w", field, err)
	}
	return nil
}

func (o *OpSpec) validateStructural(field string) error {
	switch o.Op {
	case "buffer", "partition", "sliding_window":
		if o.N <= 0 {
			return fmt.Errorf("%s.n: %s needs a positive n", field, o.Op)
		}
	case "timed_window", "rate_limit", "delay":
		if o.Interval <= 0 {
			return fmt.Errorf("%s.interval: %s needs a positive interval", field, o.Op)
		}
	case "pluck":
		if o.Path == "" {
			return fmt.Errorf("%s.path: pluck needs a jsonpath expression", field)
		}
	}
	return nil
}
