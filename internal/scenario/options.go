package scenario

import (
	"encoding/json"

	"github.com/roach88/equiv/equivalency"
)

// Options mirrors the engine options that make sense for documents. The
// same struct backs scenario files, CLI flags and recorded runs.
type Options struct {
	Including              []string `yaml:"including,omitempty" json:"including,omitempty"`
	Excluding              []string `yaml:"excluding,omitempty" json:"excluding,omitempty"`
	IgnoreCase             bool     `yaml:"ignore_case,omitempty" json:"ignore_case,omitempty"`
	NormalizeUnicode       bool     `yaml:"normalize_unicode,omitempty" json:"normalize_unicode,omitempty"`
	ExcludeMissingMembers  bool     `yaml:"exclude_missing_members,omitempty" json:"exclude_missing_members,omitempty"`
	ExcludeNilExpectations bool     `yaml:"exclude_nil_expectations,omitempty" json:"exclude_nil_expectations,omitempty"`
	NoRecursion            bool     `yaml:"no_recursion,omitempty" json:"no_recursion,omitempty"`
	MaxDepth               int      `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	Because                string   `yaml:"because,omitempty" json:"because,omitempty"`
}

// Equivalency converts o into engine options. Zero values leave the engine
// defaults alone.
func (o Options) Equivalency() []equivalency.Option {
	var opts []equivalency.Option
	if len(o.Including) > 0 {
		opts = append(opts, equivalency.Including(o.Including...))
	}
	if len(o.Excluding) > 0 {
		opts = append(opts, equivalency.Excluding(o.Excluding...))
	}
	if o.IgnoreCase {
		opts = append(opts, equivalency.IgnoringCase())
	}
	if o.NormalizeUnicode {
		opts = append(opts, equivalency.NormalizingUnicode())
	}
	if o.ExcludeMissingMembers {
		opts = append(opts, equivalency.ExcludingMissingMembers())
	}
	if o.ExcludeNilExpectations {
		opts = append(opts, equivalency.ExcludingNilExpectations())
	}
	if o.NoRecursion {
		opts = append(opts, equivalency.WithoutRecursion())
	}
	if o.MaxDepth > 0 {
		opts = append(opts, equivalency.WithMaxDepth(o.MaxDepth))
	}
	if o.Because != "" {
		opts = append(opts, equivalency.Because(o.Because))
	}
	return opts
}

// JSON encodes o for the run history.
func (o Options) JSON() json.RawMessage {
	data, err := json.Marshal(o)
	if err != nil {
		// Options holds only strings, bools and ints.
		panic(err)
	}
	return data
}
