package compiler

import (
	"reflect"
	"testing"
)

func TestClassifyLine(t *testing.T) {
	data := []struct {
		raw  string
		want sourceLine
	}{
		{"", sourceLine{Blank: true}},
		{"   ", sourceLine{Blank: true}},
		{"' a comment", sourceLine{Comment: true}},
		{"100 PRINT X", sourceLine{NumericLabel: true, LabelText: "100", Body: "PRINT X"}},
		{"100: PRINT X", sourceLine{NumericLabel: true, LabelText: "100", GosubEligible: true, Body: "PRINT X"}},
		{"100! PRINT X", sourceLine{NumericLabel: true, LabelText: "100", GosubExcluded: true, Body: "PRINT X"}},
		{"LOOP: X = X + 1", sourceLine{TextLabel: true, LabelText: "LOOP", Body: "X = X + 1"}},
		{"X = X + 1", sourceLine{Body: "X = X + 1"}},
	}
	for _, d := range data {
		got := classifyLine(1, d.raw)
		got.Raw = ""
		got.Number = 0
		if !reflect.DeepEqual(got, d.want) {
			t.Errorf("classifyLine(%q) = %+v, want %+v", d.raw, got, d.want)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	data := []struct {
		body string
		want []string
	}{
		{"A = 1 : B = 2", []string{"A = 1", "B = 2"}},
		{`PRINT "a:b" : PRINT 1`, []string{`PRINT "a:b"`, "PRINT 1"}},
		{"A = 1", []string{"A = 1"}},
		{"", []string{}},
	}
	for _, d := range data {
		got := splitStatements(d.body)
		if !reflect.DeepEqual(got, d.want) {
			t.Errorf("splitStatements(%q) = %#v, want %#v", d.body, got, d.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tokens, offsets := tokenize(`A=B+12`)
	wantTokens := []string{"A", "=", "B", "+", "12"}
	wantOffsets := []int{0, 1, 2, 3, 4}
	if !reflect.DeepEqual(tokens, wantTokens) {
		t.Errorf("tokens = %#v, want %#v", tokens, wantTokens)
	}
	if !reflect.DeepEqual(offsets, wantOffsets) {
		t.Errorf("offsets = %#v, want %#v", offsets, wantOffsets)
	}
}

func TestTokenize_string(t *testing.T) {
	tokens, _ := tokenize(`PRINT "hi there"`)
	want := []string{"PRINT", `"hi there"`}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("tokens = %#v, want %#v", tokens, want)
	}
}

func TestTokenize_multiCharOperators(t *testing.T) {
	tokens, _ := tokenize("A<=B&&C==D")
	want := []string{"A", "<=", "B", "&&", "C", "==", "D"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("tokens = %#v, want %#v", tokens, want)
	}
}

func TestIsIdentifier(t *testing.T) {
	data := []struct {
		s    string
		want bool
	}{
		{"FOO", true},
		{"foo_bar", true},
		{"1FOO", false},
		{"", false},
		{"FOO!", false},
	}
	for _, d := range data {
		if got := isIdentifier(d.s); got != d.want {
			t.Errorf("isIdentifier(%q) = %v, want %v", d.s, got, d.want)
		}
	}
}
