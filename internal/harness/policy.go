package harness

import "fmt"

// Policy says how one case is run. It is one of Proceed, Skip,
// ExpectSourceError, ExpectTargetError or
// ExpectTargetErrorWithNormalSourceResult.
type Policy interface {
	policy()
	fmt.Stringer
}

// Proceed compares normally, optionally with a tolerance override and a
// custom comparator.
type Proceed struct {
	Atol, Rtol   float64
	Comparator   Comparator
	AlwaysCustom bool
}

// Skip produces no verdict. No arguments are drawn for skipped cases.
type Skip struct {
	Reason string
}

// ExpectSourceError asserts that the source raises an error of class Kind
// whose text matches Pattern when set.
type ExpectSourceError struct {
	Kind    error
	Pattern string
}

// ExpectTargetError asserts that the target fails. The source must still
// succeed.
type ExpectTargetError struct {
	Pattern string
}

// ExpectTargetErrorWithNormalSourceResult is ExpectTargetError for a
// divergence whose error text is not pinned down.
type ExpectTargetErrorWithNormalSourceResult struct {
	Reason string
}

func (Proceed) policy()                                 {}
func (Skip) policy()                                    {}
func (ExpectSourceError) policy()                       {}
func (ExpectTargetError) policy()                       {}
func (ExpectTargetErrorWithNormalSourceResult) policy() {}

func (p Proceed) String() string {
	s := "proceed"
	if p.Atol != 0 || p.Rtol != 0 {
		s += fmt.Sprintf(" atol=%g rtol=%g", p.Atol, p.Rtol)
	}

	if p.Comparator != nil {
		if p.AlwaysCustom {
			s += " custom"
		} else {
			s += " custom-fallback"
		}
	}

	return s
}

func (p Skip) String() string { return "skip: " + p.Reason }

func (p ExpectSourceError) String() string {
	return fmt.Sprintf("expect source error %v %q", p.Kind, p.Pattern)
}

func (p ExpectTargetError) String() string {
	return fmt.Sprintf("expect target error %q", p.Pattern)
}

func (p ExpectTargetErrorWithNormalSourceResult) String() string {
	return "expect target error: " + p.Reason
}

// Rule decides the policy of a harness on a device.
type Rule func(h *Harness, device string) Policy

// PolicyTable maps harness groups to their rule.
type PolicyTable map[string]Rule

// Lookup returns the policy for h. Groups without a rule proceed.
func (t PolicyTable) Lookup(h *Harness, device string) Policy {
	rule, ok := t[h.Group()]
	if !ok || rule == nil {
		return Proceed{}
	}

	if p := rule(h, device); p != nil {
		return p
	}

	return Proceed{}
}
