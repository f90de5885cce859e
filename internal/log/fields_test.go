package log

import (
	"errors"
	"testing"
)

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentExpense).
		WithOperation(OpCreate).
		WithExpense("e1", "Dinner", 9000)

	want := map[string]any{
		FieldComponent:   ComponentExpense,
		FieldOperation:   OpCreate,
		FieldExpenseID:   "e1",
		FieldTitle:       "Dinner",
		FieldAmountCents: int64(9000),
	}
	if len(f) != len(want) {
		t.Fatalf("got %d fields, want %d: %v", len(f), len(want), f)
	}
	for k, v := range want {
		if f[k] != v {
			t.Fatalf("field %s = %v, want %v", k, f[k], v)
		}
	}
}

func TestFieldsHTTP(t *testing.T) {
	f := NewFields().
		WithRequestID("req_1").
		WithHTTPRequest("GET", "/api/balance", "userId=u1", "curl/8").
		WithClientIP("10.0.0.1").
		WithHTTPResponse(200, 12, true)

	if f[FieldRequestID] != "req_1" || f[FieldMethod] != "GET" || f[FieldPath] != "/api/balance" {
		t.Fatalf("request fields: %v", f)
	}
	if f[FieldQuery] != "userId=u1" || f[FieldUserAgent] != "curl/8" || f[FieldClientIP] != "10.0.0.1" {
		t.Fatalf("request fields: %v", f)
	}
	if f[FieldStatusCode] != 200 || f[FieldDuration] != int64(12) || f[FieldSuccess] != true {
		t.Fatalf("response fields: %v", f)
	}
}

func TestFieldsWithErrorNil(t *testing.T) {
	f := NewFields().WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Fatalf("nil error recorded: %v", f)
	}
	f = f.WithError(errors.New("boom"))
	if f[FieldError] != "boom" {
		t.Fatalf("error field = %v", f[FieldError])
	}
}

func TestFieldsToSlice(t *testing.T) {
	f := NewFields().WithComponent(ComponentHTTP).WithRequestID("req_2")
	s := f.ToSlice()
	if len(s) != 4 {
		t.Fatalf("len = %d, want 4: %v", len(s), s)
	}
	// ToSlice alternates key, value pairs in no particular order.
	got := make(map[string]any)
	for i := 0; i < len(s); i += 2 {
		key, ok := s[i].(string)
		if !ok {
			t.Fatalf("key at %d is %T", i, s[i])
		}
		got[key] = s[i+1]
	}
	if got[FieldComponent] != ComponentHTTP || got[FieldRequestID] != "req_2" {
		t.Fatalf("round trip: %v", got)
	}
}
