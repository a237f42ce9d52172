package irgen

import (
	"os"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// TestInitializerFlatteningGolden exercises the partial-brace shapes
// called out as worth pinning down explicitly: a closed nested
// aggregate realigns to the next dimension boundary, not just one
// slot, and an empty nested aggregate "{}" zero-fills its whole span.
func TestInitializerFlatteningGolden(t *testing.T) {
	data, err := os.ReadFile("testdata/initializer_flattening.txtar")
	if err != nil {
		t.Fatalf("reading golden archive: %v", err)
	}
	ar := txtar.Parse(data)

	cases := map[string]struct{ source, want string }{}
	for _, f := range ar.Files {
		name := strings.TrimSuffix(strings.TrimSuffix(f.Name, ".source"), ".want")
		c := cases[name]
		switch {
		case strings.HasSuffix(f.Name, ".source"):
			c.source = string(f.Data)
		case strings.HasSuffix(f.Name, ".want"):
			c.want = strings.TrimRight(string(f.Data), "\n")
		}
		cases[name] = c
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			text := lower(t, c.source)
			if !strings.Contains(text, c.want) {
				t.Fatalf("global %s: expected initializer %q in:\n%s", name, c.want, text)
			}
		})
	}
}
