package ante

import (
	"fmt"
	"strings"
	"time"
)

// ParamCompanyID is the placeholder every invalidation pattern must contain.
const ParamCompanyID = "companyId"

// Pattern is an invalidation template such as "query:{companyId}:*".
// Placeholders are resolved at call time: the tenant fills {companyId} and
// request parameters fill the rest. Substituted values are escaped like key
// segments, so they can never introduce wildcards.
type Pattern struct {
	template string
	reason   string
	params   []string
}

// Invalidation is a resolved pattern ready for the store.
type Invalidation struct {
	Pattern   string
	Reason    string
	Timestamp time.Time
}

// ParsePattern validates a template. It must contain {companyId} and all
// braces must be balanced.
func ParsePattern(template string) (Pattern, error) {
	p := Pattern{template: template}
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open < 0 {
			if closing >= 0 {
				return Pattern{}, fmt.Errorf("pattern %q: unbalanced '}'", template)
			}
			break
		}
		if closing < open {
			return Pattern{}, fmt.Errorf("pattern %q: unbalanced braces", template)
		}
		name := rest[open+1 : closing]
		if name == "" || strings.ContainsAny(name, "{:") {
			return Pattern{}, fmt.Errorf("pattern %q: invalid placeholder %q", template, name)
		}
		p.params = append(p.params, name)
		rest = rest[closing+1:]
	}

	scoped := false
	for _, name := range p.params {
		if name == ParamCompanyID {
			scoped = true
			break
		}
	}
	if !scoped {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnscopedPattern, template)
	}
	return p, nil
}

// MustPattern is like ParsePattern but panics on error. Intended for
// package-level pattern declarations.
func MustPattern(template string) Pattern {
	p, err := ParsePattern(template)
	if err != nil {
		panic(err)
	}
	return p
}

// WithReason returns a copy of p annotated with why it is invalidated.
func (p Pattern) WithReason(reason string) Pattern {
	p.reason = reason
	return p
}

// Template returns the unresolved template.
func (p Pattern) Template() string { return p.template }

// Reason returns the annotation set by WithReason.
func (p Pattern) Reason() string { return p.reason }

func (p Pattern) String() string { return p.template }

// Resolve substitutes the tenant and params into the template.
func (p Pattern) Resolve(tenant TenantID, params map[string]string) (string, error) {
	if tenant == "" {
		return "", ErrTenantRequired
	}
	if p.template == "" {
		return "", fmt.Errorf("%w: empty pattern", ErrUnscopedPattern)
	}

	var b strings.Builder
	rest := p.template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest, '}')
		b.WriteString(rest[:open])
		name := rest[open+1 : closing]

		var value string
		if name == ParamCompanyID {
			value = string(tenant)
		} else {
			v, ok := params[name]
			if !ok {
				return "", fmt.Errorf("%w: %q in %q", ErrMissingPatternParam, name, p.template)
			}
			value = v
		}
		b.WriteString(EscapeSegment(value))
		rest = rest[closing+1:]
	}
	return b.String(), nil
}
