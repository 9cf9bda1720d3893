package filter

// Tristate is the result of a policy requirement rule evaluation (spec.md
// glossary): TRUE, FALSE, or FAIL ("rule errored" as distinct from "rule
// didn't apply").
type Tristate int

const (
	TristateTrue Tristate = iota
	TristateFalse
	TristateFail
)

func (t Tristate) String() string {
	switch t {
	case TristateTrue:
		return "TRUE"
	case TristateFalse:
		return "FALSE"
	case TristateFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Rule is a policy requirement rule: it decides whether its owning
// FilterPolicy applies to the current request (spec.md 4.7).
type Rule interface {
	Evaluate(ctx *Context) Tristate
}

type constantRule Tristate

func (r constantRule) Evaluate(*Context) Tristate { return Tristate(r) }

// MatchesAllRule always evaluates TRUE.
var MatchesAllRule Rule = constantRule(TristateTrue)

// MatchesNoneRule always evaluates FALSE.
var MatchesNoneRule Rule = constantRule(TristateFalse)

// AlwaysFailRule always evaluates FAIL; useful in tests of tristate
// combinator propagation.
var AlwaysFailRule Rule = constantRule(TristateFail)

// NotRule negates a child rule: TRUE<->FALSE, FAIL->FAIL (spec.md 4.7).
type NotRule struct {
	Child Rule
}

func (r NotRule) Evaluate(ctx *Context) Tristate {
	switch r.Child.Evaluate(ctx) {
	case TristateTrue:
		return TristateFalse
	case TristateFalse:
		return TristateTrue
	default:
		return TristateFail
	}
}

// AndRule returns FALSE if any child is FALSE, FAIL if any non-FALSE child
// is FAIL, else TRUE (spec.md 4.7).
type AndRule struct {
	Children []Rule
}

func (r AndRule) Evaluate(ctx *Context) Tristate {
	sawFail := false
	for _, child := range r.Children {
		switch child.Evaluate(ctx) {
		case TristateFalse:
			return TristateFalse
		case TristateFail:
			sawFail = true
		}
	}
	if sawFail {
		return TristateFail
	}
	return TristateTrue
}

// OrRule returns TRUE if any child is TRUE, FAIL if any non-TRUE child is
// FAIL, else FALSE (spec.md 4.7).
type OrRule struct {
	Children []Rule
}

func (r OrRule) Evaluate(ctx *Context) Tristate {
	sawFail := false
	for _, child := range r.Children {
		switch child.Evaluate(ctx) {
		case TristateTrue:
			return TristateTrue
		case TristateFail:
			sawFail = true
		}
	}
	if sawFail {
		return TristateFail
	}
	return TristateFalse
}

// MatcherRule bridges a value-predicate Matcher into a requirement rule: it
// evaluates TRUE if the matcher selects at least one value from the named
// attribute, FALSE if it selects none, FAIL if the matcher itself fails.
type MatcherRule struct {
	AttributeID string
	Matcher     Matcher
}

func (r MatcherRule) Evaluate(ctx *Context) Tristate {
	attr := ctx.PrefilteredAttributes[r.AttributeID]
	matched, err := r.Matcher.GetMatchingValues(attr, ctx)
	if err != nil {
		return TristateFail
	}
	if len(matched) > 0 {
		return TristateTrue
	}
	return TristateFalse
}
