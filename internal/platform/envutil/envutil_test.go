package envutil

import (
	"testing"
	"time"
)

func TestHelpers(t *testing.T) {
	t.Setenv("EU_INT", "7")
	t.Setenv("EU_BAD_INT", "x")
	t.Setenv("EU_BOOL", "yes")
	t.Setenv("EU_DUR", "250ms")
	t.Setenv("EU_FLOAT", "0.5")

	if got := Int("EU_INT", 1); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	if got := Int("EU_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
	if !Bool("EU_BOOL", false) {
		t.Fatalf("Bool: want=true")
	}
	if Bool("EU_UNSET", false) {
		t.Fatalf("Bool default: want=false")
	}
	if got := Duration("EU_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Duration: want=250ms got=%s", got)
	}
	if got := Float("EU_FLOAT", 1); got != 0.5 {
		t.Fatalf("Float: want=0.5 got=%v", got)
	}
	if got := String("EU_UNSET", "d"); got != "d" {
		t.Fatalf("String default: want=d got=%s", got)
	}
}
