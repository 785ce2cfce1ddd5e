package storage

import (
	"github.com/auditmos/actionkit/event"
)

const redactedValue = "***"

// Redactor masks event detail values stored under sensitive keys, at any
// depth of nested maps. Which keys are sensitive can depend on the path the
// event is logged at.
type Redactor struct {
	rules    map[string][]*RedactRule
	ruleRepo RedactRuleRepo
}

// NewRedactor returns a Redactor with global rules for keys.
func NewRedactor(keys ...string) *Redactor {
	r := &Redactor{rules: make(map[string][]*RedactRule, len(keys))}
	for _, k := range keys {
		r.add(&RedactRule{Key: FoldKey(k)})
	}
	return r
}

func NewRedactorWithRepo(repo RedactRuleRepo) (*Redactor, error) {
	r := &Redactor{
		rules:    make(map[string][]*RedactRule),
		ruleRepo: repo,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Redactor) add(rule *RedactRule) {
	r.rules[rule.Key] = append(r.rules[rule.Key], rule)
}

func (r *Redactor) Reload() error {
	if r.ruleRepo == nil {
		return nil
	}
	rules, err := r.ruleRepo.GetAll()
	if err != nil {
		return err
	}
	r.rules = make(map[string][]*RedactRule, len(rules))
	for _, rule := range rules {
		r.add(rule)
	}
	return nil
}

// Sensitive reports whether key is redacted for events logged at path.
func (r *Redactor) Sensitive(key string, path event.Path) bool {
	for _, rule := range r.rules[FoldKey(key)] {
		if rule.Applies(path) {
			return true
		}
	}
	return false
}

// Redact returns e with sensitive details masked. e itself is not modified.
func (r *Redactor) Redact(e event.Event) event.Event {
	if len(e.Details) == 0 {
		return e
	}
	e.Details = r.redactMap(e.Details, e.Path)
	return e
}

func (r *Redactor) redactMap(m map[string]any, path event.Path) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.Sensitive(k, path) {
			out[k] = redactedValue
			continue
		}
		out[k] = r.redactValue(v, path)
	}
	return out
}

func (r *Redactor) redactValue(v any, path event.Path) any {
	switch t := v.(type) {
	case map[string]any:
		return r.redactMap(t, path)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.redactValue(item, path)
		}
		return out
	default:
		return v
	}
}

// Wrap returns a view of log that redacts every event before forwarding it.
// Events are matched against rule scopes with the path they have on arrival,
// so prefixes added by views between the caller and Wrap count.
func (r *Redactor) Wrap(log event.Log) event.Log {
	return event.WithTransform(log, r.Redact)
}
