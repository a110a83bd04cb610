package main

import (
	"testing"
)

func TestParseEnv(t *testing.T) {
	env, err := parseEnv([]string{"A=1", "B=two=parts"})
	if err != nil {
		t.Fatalf("parseEnv() error = %v", err)
	}
	if env["A"] != "1" {
		t.Errorf("A = %q, want %q", env["A"], "1")
	}
	if env["B"] != "two=parts" {
		t.Errorf("B = %q, want %q", env["B"], "two=parts")
	}
}

func TestParseEnv_Invalid(t *testing.T) {
	for _, entry := range []string{"NOVALUE", "=empty"} {
		if _, err := parseEnv([]string{entry}); err == nil {
			t.Errorf("parseEnv(%q) returned nil error", entry)
		}
	}
}

func TestParseEnv_Empty(t *testing.T) {
	env, err := parseEnv(nil)
	if err != nil {
		t.Fatalf("parseEnv() error = %v", err)
	}
	if env != nil {
		t.Errorf("parseEnv(nil) = %v, want nil", env)
	}
}
