package uuid

import (
	"strings"
	"testing"
	"time"
)

func TestNew_IsVersion7(t *testing.T) {
	id := New()
	if !IsValid(id) {
		t.Fatalf("expected valid UUID, got %q", id)
	}
	if id[14] != '7' {
		t.Errorf("expected version nibble 7, got %q in %s", id[14], id)
	}
}

func TestNew_TimeOrdered(t *testing.T) {
	first := New()
	time.Sleep(2 * time.Millisecond)
	second := New()
	if strings.Compare(first, second) >= 0 {
		t.Errorf("expected %s < %s", first, second)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("0190A0B4-7C3E-7B11-9C9B-3F1A2B3C4D5E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190a0b4-7c3e-7b11-9c9b-3f1a2b3c4d5e" {
		t.Errorf("expected canonical lowercase form, got %s", got)
	}

	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid input")
	}
	if IsValid("") {
		t.Error("empty string should not be valid")
	}
}
