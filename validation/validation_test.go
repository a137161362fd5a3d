package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/cachesync/errors"
)

func TestValidatorRequired(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"non-empty", "memory", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New().Required("provider", tc.value)
			if v.HasErrors() != tc.wantErr {
				t.Errorf("expected HasErrors=%v, got %v", tc.wantErr, v.HasErrors())
			}
		})
	}
}

func TestValidatorMin(t *testing.T) {
	if New().Min("limit", 5, 1).HasErrors() {
		t.Error("expected no error for 5 >= 1")
	}
	if !New().Min("limit", 0, 1).HasErrors() {
		t.Error("expected error for 0 < 1")
	}
}

func TestValidatorOneOf(t *testing.T) {
	allowed := []string{"memory", "sqlite", "redis"}
	if New().OneOf("provider", "sqlite", allowed).HasErrors() {
		t.Error("expected sqlite to be allowed")
	}
	v := New().OneOf("provider", "mongo", allowed)
	if !v.HasErrors() {
		t.Fatal("expected error for mongo")
	}
	if !strings.Contains(v.Errors()[0].Message, "memory, sqlite, redis") {
		t.Errorf("unexpected message %q", v.Errors()[0].Message)
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New().Custom(false, "store.sqlite.dir", "is required for the sqlite provider")
	errs := v.Errors()
	if len(errs) != 1 || errs[0].Field != "store.sqlite.dir" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := New().Required("a", "").Min("b", 0, 1).Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
	if !strings.Contains(err.Error(), "a: is required; b: must be at least 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidatorMerge(t *testing.T) {
	inner := New().Required("addr", "").Validate()

	v := New().Merge("redis", inner).Merge("http", fmt.Errorf("boom")).Merge("sync", nil)
	errs := v.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Field != "redis.addr" {
		t.Errorf("expected redis.addr, got %q", errs[0].Field)
	}
	if errs[1].Field != "http" || errs[1].Message != "boom" {
		t.Errorf("unexpected plain merge %v", errs[1])
	}
}

type storeSection struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=memory sqlite redis"`
	Limit    int    `mapstructure:"search_limit" validate:"gte=0"`
}

type rootConfig struct {
	Store storeSection `mapstructure:"store"`
}

func TestStructValidateValid(t *testing.T) {
	if err := Validate(rootConfig{Store: storeSection{Provider: "memory"}}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	err := Validate(rootConfig{Store: storeSection{Provider: "mongo", Limit: -1}})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %v", appErr.Details["fields"])
	}
	if fields[0].Field != "store.provider" {
		t.Errorf("expected store.provider, got %q", fields[0].Field)
	}
	if fields[1].Field != "store.search_limit" || fields[1].Message != "must be at least 0" {
		t.Errorf("unexpected second field error %v", fields[1])
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Provider":    "provider",
		"SearchLimit": "search_limit",
		"a":           "a",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
