package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sampleItem struct {
	Name string `json:"name" validate:"required"`
}

type sampleRequest struct {
	Model       string       `json:"model" validate:"required"`
	Temperature *float64     `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	N           *int         `json:"n,omitempty" validate:"omitempty,gte=1,lte=128"`
	Tier        string       `json:"tier,omitempty" validate:"omitempty,oneof=auto default"`
	Items       []sampleItem `json:"items" validate:"required,min=1,dive"`
	Words       []string     `json:"words,omitempty"`
	Ignored     string       `json:"-"`
}

func ptr[T any](v T) *T { return &v }

func validSample() sampleRequest {
	return sampleRequest{Model: "m", Items: []sampleItem{{Name: "a"}}}
}

func TestValidatePasses(t *testing.T) {
	t.Parallel()

	if err := New().Validate(validSample()); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateBoundariesAccepted(t *testing.T) {
	t.Parallel()

	v := New()
	for _, temp := range []float64{0, 2} {
		req := validSample()
		req.Temperature = ptr(temp)
		req.N = ptr(128)
		if err := v.Validate(&req); err != nil {
			t.Fatalf("temperature %v: unexpected error %v", temp, err)
		}
	}
}

func TestValidateAggregatesViolations(t *testing.T) {
	t.Parallel()

	req := sampleRequest{
		Temperature: ptr(5.0),
		N:           ptr(0),
		Items:       []sampleItem{{}},
	}

	err := New().Validate(req)

	var cve *ConstraintViolationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ConstraintViolationError, got %T %v", err, err)
	}

	want := []string{"model", "temperature", "n", "items[0].name"}
	if diff := cmp.Diff(want, cve.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	got := cve.Violations()
	if got[1].Constraint != "lte" || got[1].Param != "2" {
		t.Fatalf("unexpected temperature violation: %#v", got[1])
	}
	if got[2].Constraint != "gte" || got[2].Value != 0 {
		t.Fatalf("unexpected n violation: %#v", got[2])
	}
}

func TestValidateSkipsNonStruct(t *testing.T) {
	t.Parallel()

	v := New()
	for _, body := range []any{nil, []byte("raw"), "text", (*sampleRequest)(nil)} {
		if err := v.Validate(body); err != nil {
			t.Fatalf("body %#v: expected nil, got %v", body, err)
		}
	}
}

type ruled struct {
	Words []string `json:"words"`
}

func TestRegisterRuleReportsThroughAggregate(t *testing.T) {
	t.Parallel()

	v := New()
	v.RegisterRule(func(r Reporter, value any) {
		if w := value.(ruled).Words; len(w) > 2 {
			r.Report("words", "max", "2", len(w))
		}
	}, ruled{})

	err := v.Validate(ruled{Words: []string{"a", "b", "c"}})

	var cve *ConstraintViolationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ConstraintViolationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"words"}, cve.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestViolationErrorsAreUnwrappable(t *testing.T) {
	t.Parallel()

	err := New().Validate(sampleRequest{Items: []sampleItem{{Name: "x"}}})

	var v Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected Violation reachable through errors.As, got %v", err)
	}
	if v.Field != "model" || v.Constraint != "required" {
		t.Fatalf("unexpected violation %#v", v)
	}
}

func TestRegisterRuleAccumulatesPerType(t *testing.T) {
	t.Parallel()

	v := New()
	v.RegisterRule(func(r Reporter, value any) {
		if len(value.(ruled).Words) == 0 {
			r.Report("words", "required", "", nil)
		}
	}, ruled{})
	v.RegisterRule(func(r Reporter, value any) {
		if len(value.(ruled).Words) > 2 {
			r.Report("words", "max", "2", len(value.(ruled).Words))
		}
	}, ruled{})

	for _, tc := range []struct {
		words      []string
		constraint string
	}{
		{nil, "required"},
		{[]string{"a", "b", "c"}, "max"},
	} {
		var cve *ConstraintViolationError
		if !errors.As(v.Validate(ruled{Words: tc.words}), &cve) {
			t.Fatalf("%v: expected ConstraintViolationError", tc.words)
		}
		if got := cve.Violations(); len(got) != 1 || got[0].Constraint != tc.constraint {
			t.Fatalf("%v: expected one %s violation, got %#v", tc.words, tc.constraint, got)
		}
	}
}

type holder struct {
	Items []any `json:"items"`
}

func TestNestedReportsUnderField(t *testing.T) {
	t.Parallel()

	v := New()
	v.RegisterRule(func(r Reporter, value any) {
		for i, item := range value.(holder).Items {
			r.Nested(fmt.Sprintf("items[%d]", i), item)
		}
	}, holder{})

	err := v.Validate(holder{Items: []any{sampleItem{Name: "ok"}, sampleItem{}, "not a struct"}})

	var cve *ConstraintViolationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ConstraintViolationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"items[1].name"}, cve.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultPicksUpLateRules(t *testing.T) {
	type late struct {
		N int `json:"n"`
	}

	_ = Default()
	RegisterRule(func(r Reporter, value any) {
		if value.(late).N < 0 {
			r.Report("n", "gte", "0", value.(late).N)
		}
	}, late{})

	if err := Validate(late{N: -1}); err == nil {
		t.Fatalf("expected rule registered after Default to apply")
	}
}
