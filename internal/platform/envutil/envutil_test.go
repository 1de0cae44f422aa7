package envutil

import (
	"testing"
	"time"
)

func TestGetters(t *testing.T) {
	t.Setenv("EU_STR", "  hello ")
	t.Setenv("EU_INT", "42")
	t.Setenv("EU_BADINT", "x")
	t.Setenv("EU_FLOAT", "2.5")
	t.Setenv("EU_BOOL", "yes")
	t.Setenv("EU_DUR", "90s")
	t.Setenv("EU_DUR_SECS", "30")
	t.Setenv("EU_CSV", "a, b,,c ")

	if got := String("EU_STR", "def"); got != "hello" {
		t.Fatalf("String: %q", got)
	}
	if got := String("EU_MISSING", "def"); got != "def" {
		t.Fatalf("String default: %q", got)
	}
	if got := Int("EU_INT", 1); got != 42 {
		t.Fatalf("Int: %d", got)
	}
	if got := Int("EU_BADINT", 7); got != 7 {
		t.Fatalf("Int fallback: %d", got)
	}
	if got := Float("EU_FLOAT", 0); got != 2.5 {
		t.Fatalf("Float: %v", got)
	}
	if !Bool("EU_BOOL", false) {
		t.Fatalf("Bool: expected true")
	}
	if got := Duration("EU_DUR", 0); got != 90*time.Second {
		t.Fatalf("Duration: %v", got)
	}
	if got := Duration("EU_DUR_SECS", 0); got != 30*time.Second {
		t.Fatalf("Duration secs: %v", got)
	}
	got := CSV("EU_CSV", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("CSV: %#v", got)
	}
}
