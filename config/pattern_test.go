package config

import (
	"reflect"
	"testing"
)

func TestExpandPattern(t *testing.T) {
	cases := []struct {
		pattern string
		want    []string
	}{
		{"", []string{""}},
		{"plain.name", []string{"plain.name"}},
		{"req.{a,b}", []string{"req.a", "req.b"}},
		{"req.{a,b}.time", []string{"req.a.time", "req.b.time"}},
		{"{a,b}{c,d}", []string{"ac", "ad", "bc", "bd"}},
		{"a{b,c{d,e}}f", []string{"abf", "acdf", "acef"}},
		{"x{y}z", []string{"xyz"}},
	}
	for _, c := range cases {
		got, err := ExpandPattern(c.pattern)
		if err != nil {
			t.Errorf("ExpandPattern(%q): %v", c.pattern, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ExpandPattern(%q) = %v, want %v", c.pattern, got, c.want)
		}
	}
}

func TestExpandPatternDeterministic(t *testing.T) {
	first, err := ExpandPattern("svc.{a,b,c}.{get,put}")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := ExpandPattern("svc.{a,b,c}.{get,put}")
	if !reflect.DeepEqual(first, second) {
		t.Error("expansion is not deterministic")
	}

	want := []string{
		"svc.a.get", "svc.a.put",
		"svc.b.get", "svc.b.put",
		"svc.c.get", "svc.c.put",
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("expansion order = %v, want %v", first, want)
	}
}

func TestExpandPatternMalformed(t *testing.T) {
	for _, pattern := range []string{
		"req.{a,b",
		"a{b,{c}",
		"a{",
	} {
		if _, err := ExpandPattern(pattern); err == nil {
			t.Errorf("ExpandPattern(%q) succeeded, want error", pattern)
		}
	}
}

func TestExpandPatternErrorPosition(t *testing.T) {
	_, err := ExpandPattern("req.{a,b")
	pe, ok := err.(*PatternError)
	if !ok {
		t.Fatalf("error type %T, want *PatternError", err)
	}
	if pe.Pos != len("req.{a,b") {
		t.Errorf("Pos = %d, want %d", pe.Pos, len("req.{a,b"))
	}
}
