package irgen

import (
	"strings"
	"testing"
)

func TestFoldLogicalShortCircuitsAndSkipsDivByZero(t *testing.T) {
	text := lower(t, "int main() { const int x = 0 && (1 / 0); return x; }")
	if !strings.Contains(text, "ret 0") {
		t.Fatalf("expected 0 && ... to fold to 0 without evaluating the rhs, got:\n%s", text)
	}
}

func TestFoldLogicalOrShortCircuitsAndSkipsModByZero(t *testing.T) {
	text := lower(t, "int main() { const int x = 1 || (2 % 0); return x; }")
	if !strings.Contains(text, "ret 1") {
		t.Fatalf("expected 1 || ... to fold to 1 without evaluating the rhs, got:\n%s", text)
	}
}

func TestFoldLogicalStillEvaluatesRhsWhenLeftDoesNotDecide(t *testing.T) {
	err := lowerErr(t, "int main() { const int x = 0 || (1 / 0); return x; }")
	if err == nil {
		t.Fatalf("expected 0 || ... to still fold (and fail on) the rhs, since 0 never decides ||")
	}
}

func TestFoldLogicalAndEvaluatesRhsWhenLeftTrue(t *testing.T) {
	text := lower(t, "int main() { const int x = 1 && 1; return x; }")
	if !strings.Contains(text, "ret 1") {
		t.Fatalf("expected 1 && 1 to fold to 1, got:\n%s", text)
	}
}
