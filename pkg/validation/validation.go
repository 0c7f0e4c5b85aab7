// Package validation evaluates the declarative constraints attached to request
// types through `validate` struct tags, plus per-type rules registered by the
// domain packages for their polymorphic fields.
//
// Every violation found in a value is collected; callers receive a single
// *ConstraintViolationError listing all of them.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// Violation is one failed constraint on one field.
type Violation struct {
	Field      string // wire path, e.g. "messages[1].content"
	Constraint string // constraint name, e.g. "lte"
	Param      string // constraint parameter, e.g. "2"
	Value      any
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s %s (got %v)", v.Field, describe(v.Constraint, v.Param), v.Value)
}

func describe(constraint, param string) string {
	switch constraint {
	case "required":
		return "is required"
	case "min":
		return "must have size >= " + param
	case "max":
		return "must have size <= " + param
	case "gte":
		return "must be >= " + param
	case "lte":
		return "must be <= " + param
	case "oneof":
		return "must be one of [" + param + "]"
	case "excluded_with":
		return "must not be set together with " + param
	case "required_if":
		return "is required when " + param
	case "required_without":
		return "is required without " + param
	}
	if param == "" {
		return "violates " + constraint
	}
	return "violates " + constraint + "=" + param
}

// ConstraintViolationError aggregates every violation found in one value.
type ConstraintViolationError struct {
	err error
}

func (e *ConstraintViolationError) Error() string {
	errs := multierr.Errors(e.err)
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("constraint violations (%d): %s", len(msgs), strings.Join(msgs, "; "))
}

// Violations returns the individual violations in discovery order.
func (e *ConstraintViolationError) Violations() []Violation {
	errs := multierr.Errors(e.err)
	out := make([]Violation, 0, len(errs))
	for _, err := range errs {
		var v Violation
		if errors.As(err, &v) {
			out = append(out, v)
		}
	}
	return out
}

// Unwrap exposes the violations to errors.Is / errors.As.
func (e *ConstraintViolationError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Fields returns the distinct field paths that failed.
func (e *ConstraintViolationError) Fields() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range e.Violations() {
		if _, ok := seen[v.Field]; ok {
			continue
		}
		seen[v.Field] = struct{}{}
		out = append(out, v.Field)
	}
	return out
}

// Reporter receives violations found by a Rule.
type Reporter interface {
	Report(field, constraint, param string, value any)
	// Nested validates value, a struct the tags cannot reach (for example
	// one held in an interface-typed slice), and reports its violations
	// under field.
	Nested(field string, value any)
}

// Rule checks a whole value of a registered type. It complements the
// field tags for constraints a tag cannot express, such as which concrete
// variants a polymorphic field may hold.
type Rule func(r Reporter, value any)

// Validator evaluates struct tags and registered rules.
type Validator struct {
	v *validator.Validate

	mu    sync.Mutex
	rules map[reflect.Type][]Rule
}

// New returns a Validator reporting fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, rules: make(map[reflect.Type][]Rule)}
}

// RegisterRule attaches rule to each of the sample types (pass zero values).
// Rules for the same type accumulate and run in registration order.
// Register rules before the first Validate call.
func (val *Validator) RegisterRule(rule Rule, types ...any) {
	val.mu.Lock()
	defer val.mu.Unlock()

	for _, sample := range types {
		t := reflect.TypeOf(sample)
		rules := append(val.rules[t], rule)
		val.rules[t] = rules
		val.v.RegisterStructValidation(func(sl validator.StructLevel) {
			r := structReporter{sl: sl}
			v := sl.Current().Interface()
			for _, rule := range rules {
				rule(r, v)
			}
		}, sample)
	}
}

type structReporter struct {
	sl validator.StructLevel
}

func (r structReporter) Report(field, constraint, param string, value any) {
	r.sl.ReportError(value, field, field, constraint, param)
}

func (r structReporter) Nested(field string, value any) {
	if !isStruct(value) {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(r.sl.Validator().Struct(value), &fieldErrs) {
		return
	}
	for _, fe := range fieldErrs {
		path := field + "." + fieldPath(fe.Namespace())
		r.sl.ReportError(fe.Value(), path, path, fe.Tag(), fe.Param())
	}
}

// Validate checks v. Values that are not structs (or pointers to structs)
// carry no constraints and pass.
func (val *Validator) Validate(v any) error {
	if !isStruct(v) {
		return nil
	}

	err := val.v.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation: %w", err)
	}

	var combined error
	for _, fe := range fieldErrs {
		combined = multierr.Append(combined, Violation{
			Field:      fieldPath(fe.Namespace()),
			Constraint: fe.Tag(),
			Param:      fe.Param(),
			Value:      fe.Value(),
		})
	}
	return &ConstraintViolationError{err: combined}
}

// Inspector adapts the validator to the transport's body-inspection hook.
func (val *Validator) Inspector() func(body any) error {
	return val.Validate
}

// fieldPath drops the leading type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func isStruct(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

var (
	defaultValidator     *Validator
	defaultValidatorOnce sync.Once
	pendingMu            sync.Mutex
	pendingRules         []pendingRule
)

type pendingRule struct {
	rule  Rule
	types []any
}

// Default returns the process-wide validator carrying every rule registered
// through RegisterRule.
func Default() *Validator {
	defaultValidatorOnce.Do(func() {
		v := New()
		pendingMu.Lock()
		defer pendingMu.Unlock()
		for _, p := range pendingRules {
			v.RegisterRule(p.rule, p.types...)
		}
		defaultValidator = v
	})
	return defaultValidator
}

// RegisterRule records a rule for the default validator. Domain packages
// call it from init.
func RegisterRule(rule Rule, types ...any) {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	pendingRules = append(pendingRules, pendingRule{rule: rule, types: types})
	if defaultValidator != nil {
		defaultValidator.RegisterRule(rule, types...)
	}
}

// Validate checks v with the default validator.
func Validate(v any) error {
	return Default().Validate(v)
}
