package harness

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/go-primparity/internal/lax"
)

// Override actions.
const (
	ActionProceed                       = "proceed"
	ActionSkip                          = "skip"
	ActionExpectSourceError             = "expect_source_error"
	ActionExpectTargetError             = "expect_target_error"
	ActionExpectTargetErrorNormalSource = "expect_target_error_normal_source"
)

// sourceErrorKinds names the source error classes an override can expect.
var sourceErrorKinds = map[string]error{
	"type":          lax.ErrShape,
	"value":         lax.ErrValue,
	"unimplemented": lax.ErrUnimplemented,
}

// Override replaces the table policy of matching harnesses. Empty selector
// fields match anything; Name is a regular expression over the harness name.
type Override struct {
	Group   string  `yaml:"group"`
	Name    string  `yaml:"name"`
	DType   string  `yaml:"dtype"`
	Device  string  `yaml:"device"`
	Action  string  `yaml:"action"`
	Reason  string  `yaml:"reason"`
	Pattern string  `yaml:"pattern"`
	Kind    string  `yaml:"kind"`
	Atol    float64 `yaml:"atol"`
	Rtol    float64 `yaml:"rtol"`

	name *regexp.Regexp
}

type overrideFile struct {
	Overrides []Override `yaml:"overrides"`
}

// LoadOverrides reads a YAML file of the form
//
//	overrides:
//	  - group: unary_elementwise
//	    name: "^erf_inv_"
//	    device: tpu
//	    action: skip
//	    reason: flaky on tpu
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read overrides: %w", err)
	}

	return ParseOverrides(data)
}

func ParseOverrides(data []byte) ([]Override, error) {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("harness: decode overrides: %w", err)
	}

	for i := range f.Overrides {
		if err := f.Overrides[i].compile(); err != nil {
			return nil, fmt.Errorf("harness: override %d: %w", i, err)
		}
	}

	return f.Overrides, nil
}

func (o *Override) compile() error {
	o.Action = strings.ToLower(strings.TrimSpace(o.Action))

	switch o.Action {
	case ActionProceed, ActionSkip, ActionExpectTargetError, ActionExpectTargetErrorNormalSource:
	case ActionExpectSourceError:
		if _, ok := sourceErrorKinds[o.Kind]; !ok && o.Kind != "" {
			return fmt.Errorf("unknown source error kind %q (want type|value|unimplemented)", o.Kind)
		}
	default:
		return fmt.Errorf("unknown action %q", o.Action)
	}

	if o.Name != "" {
		re, err := regexp.Compile(o.Name)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}

		o.name = re
	}

	if o.Pattern != "" {
		if _, err := regexp.Compile(o.Pattern); err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
	}

	return nil
}

// Matches reports whether o selects h on device.
func (o *Override) Matches(h *Harness, device string) bool {
	if o.Group != "" && o.Group != h.Group() {
		return false
	}

	if o.Device != "" && !strings.EqualFold(o.Device, device) {
		return false
	}

	if o.DType != "" && h.Params().DType("dtype").String() != o.DType {
		return false
	}

	if o.Name != "" {
		if o.name == nil {
			if err := o.compile(); err != nil {
				return false
			}
		}

		if !o.name.MatchString(h.Name()) {
			return false
		}
	}

	return true
}

// Policy returns the policy o imposes.
func (o *Override) Policy() Policy {
	switch o.Action {
	case ActionSkip:
		return Skip{Reason: o.Reason}
	case ActionExpectSourceError:
		return ExpectSourceError{Kind: sourceErrorKinds[o.Kind], Pattern: o.Pattern}
	case ActionExpectTargetError:
		return ExpectTargetError{Pattern: o.Pattern}
	case ActionExpectTargetErrorNormalSource:
		return ExpectTargetErrorWithNormalSourceResult{Reason: o.Reason}
	default:
		return Proceed{Atol: o.Atol, Rtol: o.Rtol}
	}
}
