package models

import "testing"

func TestJSONScanAcceptsStringAndBytes(t *testing.T) {
	var fromString JSON
	if err := fromString.Scan(`{"percent":50}`); err != nil {
		t.Fatalf("scan string failed: %v", err)
	}
	if fromString["percent"] != float64(50) {
		t.Fatalf("unexpected percent: %#v", fromString["percent"])
	}

	var fromBytes JSON
	if err := fromBytes.Scan([]byte(`{"button":"Add"}`)); err != nil {
		t.Fatalf("scan bytes failed: %v", err)
	}
	if fromBytes["button"] != "Add" {
		t.Fatalf("unexpected button: %#v", fromBytes["button"])
	}

	var empty JSON
	if err := empty.Scan(nil); err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("nil scan should yield empty map, got=%#v err=%v", empty, err)
	}
}

func TestJSONValueOfNilIsEmptyObject(t *testing.T) {
	var j JSON
	v, err := j.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}
	if v != "{}" {
		t.Fatalf("expected {}, got %#v", v)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@Example.COM "); got != "a@example.com" {
		t.Fatalf("unexpected normalized email: %s", got)
	}
}
