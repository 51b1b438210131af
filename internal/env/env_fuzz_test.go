package env

import (
	"strings"
	"testing"

	"github.com/loykin/openlist-service/internal/catalog"
)

// FuzzExpandMerge fuzzes Merge/expand with random inputs to ensure no panics and
// basic invariants around ${VAR} expansion.
func FuzzExpandMerge(f *testing.F) {
	f.Add([]byte("A=1\nB=${A}-x"), []byte("C=${B}-y"))
	f.Add([]byte("FOO=bar"), []byte("FOO=${FOO}"))
	f.Add([]byte("X=$Y"), []byte("Y=${X}")) // cyclic-like

	f.Fuzz(func(t *testing.T, baseB []byte, overrideB []byte) {
		base := splitNZ(string(baseB))
		override := toMap(splitNZ(string(overrideB)))
		if len(base) > 20 {
			base = base[:20]
		}
		if len(override) > 20 {
			override = trimMap(override, 20)
		}

		e := New()
		e.env = toMap(base)
		out := e.Merge(catalog.Config{ID: "fuzz-id", Name: "fuzz-name", EnvVars: override})
		// Invariants:
		// 1) Out must be key=value items without empty keys and with '=' present.
		for _, kv := range out {
			if !strings.Contains(kv, "=") {
				t.Fatalf("bad pair: %q", kv)
			}
			if strings.HasPrefix(kv, "=") {
				t.Fatalf("empty key: %q", kv)
			}
		}
		// 2) Expansion should not introduce raw ${ sequences when inputs are simple ASCII without '$'.
		containsDollar := false
		for _, s := range base {
			if strings.ContainsRune(s, '$') {
				containsDollar = true
				break
			}
		}
		for _, v := range override {
			if strings.ContainsRune(v, '$') {
				containsDollar = true
				break
			}
		}
		if !containsDollar {
			for _, kv := range out {
				if strings.Contains(kv, "${") {
					t.Fatalf("unexpected placeholder remains: %q", kv)
				}
			}
		}
	})
}

func toMap(kvs []string) Var {
	m := make(Var)
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

func trimMap(m Var, n int) Var {
	out := make(Var, n)
	i := 0
	for k, v := range m {
		if i >= n {
			break
		}
		out[k] = v
		i++
	}
	return out
}

// splitNZ splits s by newlines and returns non-empty trimmed lines.
func splitNZ(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
