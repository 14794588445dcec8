package utils

import (
	"reflect"
	"testing"
)

func TestSplitSeatList(t *testing.T) {
	got := SplitSeatList(" 1a, 1B;;2c\n ,")
	want := []string{"1A", "1B", "2C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := SplitSeatList(" , ;"); len(got) != 0 {
		t.Fatalf("expected no seats, got %v", got)
	}
}

func TestCleanSeatListReportsDuplicate(t *testing.T) {
	if _, bad, ok := CleanSeatList([]string{"1A", " 1a "}); ok || bad != " 1a " {
		t.Fatalf("expected duplicate to be reported, got %q %v", bad, ok)
	}
}
