//go:build property

package pipe

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAliasProperties checks that aliases stay indistinguishable from their
// targets across updates and disappear with them.
func TestAliasProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("alias transparency", prop.ForAll(
		func(value string, from, length int) bool {
			r := New()
			if err := r.Alias("substr", "cut"); err != nil {
				return false
			}

			args := formatArgs(from, length)
			direct, err1 := r.Pipe(value, "substr", args)
			aliased, err2 := r.Pipe(value, "cut", args)

			return err1 == nil && err2 == nil && direct == aliased
		},
		gen.AnyString(),
		gen.IntRange(-10, 10),
		gen.IntRange(-2, 10),
	))

	properties.Property("updates are visible through every alias", prop.ForAll(
		func(value string, depth int) bool {
			r := New()
			names := []string{"uppercase"}
			for i := 0; i < depth; i++ {
				next := "alias" + string(rune('a'+i))
				if err := r.Alias(names[len(names)-1], next); err != nil {
					return false
				}
				names = append(names, next)
			}

			err := r.Update(names[len(names)-1], func(prev Func, v string, args ...any) (any, error) {
				out, err := prev(v, args...)
				return "<" + out.(string) + ">", err
			})
			if err != nil {
				return false
			}

			want, _ := r.Pipe(value, "uppercase", "")
			for _, name := range names {
				got, err := r.Pipe(value, name, "")
				if err != nil || got != want {
					return false
				}
			}

			return true
		},
		gen.AlphaString(),
		gen.IntRange(0, 6),
	))

	properties.Property("deregistering the root removes every alias", prop.ForAll(
		func(depth int) bool {
			r := New()
			names := []string{"lowercase"}
			for i := 0; i < depth; i++ {
				next := "chain" + string(rune('a'+i))
				if err := r.Alias(names[i/2], next); err != nil {
					return false
				}
				names = append(names, next)
			}

			r.Deregister("lowercase")
			for _, name := range names {
				if r.Has(name) {
					return false
				}
			}

			return true
		},
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

func formatArgs(from, length int) string {
	return strconv.Itoa(from) + "," + strconv.Itoa(length)
}
