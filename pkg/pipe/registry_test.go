package pipe

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/markup/pkg/data"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
)

func echo(tag string) Func {
	return func(value string, args ...any) (any, error) {
		return tag + ":" + value, nil
	}
}

func TestRegister(t *testing.T) {
	r := NewEmpty()

	require.NoError(t, r.Register("  tester  ", echo("t")))
	assert.True(t, r.Has("tester"))

	tests := []struct {
		name   string
		input  string
		target error
	}{
		{"blank", "     ", markuperrors.ErrInvalidName},
		{"digits", "123", markuperrors.ErrInvalidName},
		{"underscore", "snake_case", markuperrors.ErrInvalidName},
		{"operator", "==", markuperrors.ErrInvalidName},
		{"duplicate", "tester", markuperrors.ErrDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.input, echo("x"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestRegisterMessages(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("testee", echo("t")))

	err := r.Register("testee", echo("t"))
	assert.EqualError(t, err, "[ERR_DUPLICATE_NAME] Pipe already exists: testee.")

	err = r.Register("123", echo("t"))
	assert.Contains(t, err.Error(), "Pipe names must only contain letters. Whitespaces are trimmed.")

	_, err = r.Pipe("", "undefinedTest", "")
	assert.Contains(t, err.Error(), "Pipe does not exist: undefinedTest.")
}

func TestPipeArguments(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("testArgument", func(value string, args ...any) (any, error) {
		var b strings.Builder
		b.WriteString(value)
		for _, arg := range args {
			b.WriteString(data.Stringify(arg))
		}
		return b.String(), nil
	}))

	out, err := r.Pipe("MyValue", "testArgument", "1, true, hello, false")
	require.NoError(t, err)
	assert.Equal(t, "MyValue1truehellofalse", out)

	var seen []any
	require.NoError(t, r.Register("capture", func(value string, args ...any) (any, error) {
		seen = args
		return nil, nil
	}))

	out, err = r.Pipe("v", "capture", "2.5,false , word,12px")
	require.NoError(t, err)
	assert.Equal(t, "", out, "nil results render empty")
	assert.Equal(t, []any{2.5, false, "word", 12.0}, seen)
}

func TestPipeEmptyName(t *testing.T) {
	out, err := NewEmpty().Pipe("unchanged", "", "")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}

func TestPipeError(t *testing.T) {
	r := NewEmpty()
	boom := errors.New("boom")
	require.NoError(t, r.Register("failing", func(string, ...any) (any, error) {
		return nil, boom
	}))

	_, err := r.Pipe("v", "failing", "")
	assert.ErrorIs(t, err, boom)
}

func TestAlias(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("a", echo("a")))
	require.NoError(t, r.Alias("a", "b"))

	viaA, err := r.Pipe("v", "a", "")
	require.NoError(t, err)
	viaB, err := r.Pipe("v", "b", "")
	require.NoError(t, err)
	assert.Equal(t, viaA, viaB)

	target, ok := r.Target("b")
	assert.True(t, ok)
	assert.Equal(t, "a", target)

	require.NoError(t, r.Update("a", func(prev Func, value string, args ...any) (any, error) {
		out, err := prev(value, args...)
		return fmt.Sprintf("[%v]", out), err
	}))

	viaA, err = r.Pipe("v", "a", "")
	require.NoError(t, err)
	viaB, err = r.Pipe("v", "b", "")
	require.NoError(t, err)
	assert.Equal(t, "[a:v]", viaA)
	assert.Equal(t, viaA, viaB)
}

func TestAliasErrors(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("a", echo("a")))
	require.NoError(t, r.Register("taken", echo("t")))

	tests := []struct {
		name     string
		existing string
		newName  string
		target   error
	}{
		{"self", "a", "a", markuperrors.ErrSelfAlias},
		{"unknown source", "missing", "b", markuperrors.ErrUnknownPipeToCopyOrAlias},
		{"taken", "a", "taken", markuperrors.ErrDuplicateName},
		{"invalid", "a", "bad name", markuperrors.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Alias(tt.existing, tt.newName)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestDeregisterCascade(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("pOne", echo("1")))
	require.NoError(t, r.Alias("pOne", "pTwo"))
	require.NoError(t, r.Alias("pOne", "pThree"))
	require.NoError(t, r.Alias("pTwo", "pFour"))
	require.NoError(t, r.Register("other", echo("o")))

	assert.True(t, r.Deregister("pOne"))

	for _, name := range []string{"pOne", "pTwo", "pThree", "pFour"} {
		_, err := r.Pipe("", name, "")
		assert.True(t, errors.Is(err, markuperrors.ErrUnknownFilter), name)
	}
	assert.Equal(t, []string{"other"}, r.Names())

	assert.False(t, r.Deregister("pOne"))
}

func TestDeregisterAliasChain(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("base", echo("b")))
	require.NoError(t, r.Alias("base", "mid"))
	require.NoError(t, r.Alias("mid", "leaf"))
	require.NoError(t, r.Alias("base", "side"))

	assert.True(t, r.Deregister("mid"))

	assert.True(t, r.Has("base"))
	assert.True(t, r.Has("side"))
	assert.False(t, r.Has("mid"))
	assert.False(t, r.Has("leaf"))
}

func TestUpdate(t *testing.T) {
	r := NewEmpty()

	err := r.Update("missing", func(prev Func, value string, args ...any) (any, error) {
		return prev(value, args...)
	})
	assert.True(t, errors.Is(err, markuperrors.ErrUnknownPipeToUpdate))

	require.NoError(t, r.Register("base", echo("b")))
	require.NoError(t, r.Alias("base", "alias"))

	// Updating through an alias replaces the canonical implementation.
	require.NoError(t, r.Update("alias", func(prev Func, value string, args ...any) (any, error) {
		return prev(strings.ToUpper(value), args...)
	}))

	out, err := r.Pipe("x", "base", "")
	require.NoError(t, err)
	assert.Equal(t, "b:X", out)

	target, ok := r.Target("alias")
	assert.True(t, ok)
	assert.Equal(t, "base", target)
}

func TestNilFunctions(t *testing.T) {
	r := NewEmpty()

	err := r.Register("nilpipe", nil)
	assert.True(t, errors.Is(err, markuperrors.ErrNilPipe), "got %v", err)
	assert.False(t, r.Has("nilpipe"))

	_, err = r.Pipe("x", "nilpipe", "")
	assert.True(t, errors.Is(err, markuperrors.ErrUnknownFilter))

	require.NoError(t, r.Register("base", echo("b")))
	err = r.Update("base", nil)
	assert.EqualError(t, err, "[ERR_NIL_PIPE] Pipe base has no function.")

	out, err := r.Pipe("x", "base", "")
	require.NoError(t, err)
	assert.Equal(t, "b:x", out)
}

func TestCopy(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("base", echo("b")))

	t.Run("conflicting options", func(t *testing.T) {
		err := r.Copy("base", "both", true, func(prev Func, value string, args ...any) (any, error) {
			return prev(value, args...)
		})
		assert.True(t, errors.Is(err, markuperrors.ErrConflictingOptions))
		assert.False(t, r.Has("both"))
	})

	t.Run("unknown source", func(t *testing.T) {
		err := r.Copy("missing", "copy", false, nil)
		assert.True(t, errors.Is(err, markuperrors.ErrUnknownPipeToCopyOrAlias))
	})

	t.Run("independent copy", func(t *testing.T) {
		require.NoError(t, r.Copy("base", "snapshot", false, nil))
		require.NoError(t, r.Update("base", func(prev Func, value string, args ...any) (any, error) {
			return "updated", nil
		}))

		out, err := r.Pipe("v", "snapshot", "")
		require.NoError(t, err)
		assert.Equal(t, "b:v", out, "copies do not follow later updates")

		_, isAlias := r.Target("snapshot")
		assert.False(t, isAlias)
	})

	t.Run("wrapped copy", func(t *testing.T) {
		require.NoError(t, r.Copy("snapshot", "loud", false, func(prev Func, value string, args ...any) (any, error) {
			out, err := prev(value, args...)
			return strings.ToUpper(data.Stringify(out)), err
		}))

		out, err := r.Pipe("v", "loud", "")
		require.NoError(t, err)
		assert.Equal(t, "B:V", out)
	})

	t.Run("as alias", func(t *testing.T) {
		require.NoError(t, r.Copy("base", "linked", true, nil))

		out, err := r.Pipe("v", "linked", "")
		require.NoError(t, err)
		assert.Equal(t, "updated", out)
	})

	t.Run("duplicate", func(t *testing.T) {
		err := r.Copy("base", "snapshot", false, nil)
		assert.True(t, errors.Is(err, markuperrors.ErrDuplicateName))
	})
}

func TestClone(t *testing.T) {
	r := NewEmpty()
	require.NoError(t, r.Register("a", echo("a")))
	require.NoError(t, r.Alias("a", "b"))

	c := r.Clone()
	require.NoError(t, c.Register("c", echo("c")))
	assert.True(t, c.Deregister("a"))

	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, []string{"c"}, c.Names())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, Default(), Default())

	require.NoError(t, Register("defaultRegistryProbe", echo("p")))
	t.Cleanup(func() { Deregister("defaultRegistryProbe") })

	require.NoError(t, Alias("defaultRegistryProbe", "defaultRegistryAlias"))
	require.NoError(t, Copy("defaultRegistryProbe", "defaultRegistryCopy", false, nil))
	t.Cleanup(func() { Deregister("defaultRegistryCopy") })

	require.NoError(t, Update("defaultRegistryAlias", func(prev Func, value string, args ...any) (any, error) {
		return prev("!"+value, args...)
	}))

	out, err := Pipe("x", "defaultRegistryAlias", "")
	require.NoError(t, err)
	assert.Equal(t, "p:!x", out)

	assert.Contains(t, Names(), "defaultRegistryCopy")
	assert.Contains(t, Names(), "uppercase")
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("worker%c", 'a'+id)
			for i := 0; i < 100; i++ {
				_ = r.Register(name, echo(name))
				_ = r.Alias(name, name+"alias")
				_, _ = r.Pipe("v", "uppercase", "")
				_, _ = r.Pipe("v", name+"alias", "")
				r.Deregister(name)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 8; g++ {
		assert.False(t, r.Has(fmt.Sprintf("worker%calias", 'a'+g)))
	}
}

func BenchmarkPipe(b *testing.B) {
	r := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Pipe("this123", "substr", "0,5")
	}
}

func BenchmarkPipeThroughAlias(b *testing.B) {
	r := New()
	_ = r.Alias("uppercase", "shout")
	_ = r.Alias("shout", "yell")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Pipe("value", "yell", "")
	}
}

func FuzzParseArgs(f *testing.F) {
	f.Add("1, true, hello, false")
	f.Add("")
	f.Add(" , ,")

	f.Fuzz(func(t *testing.T, raw string) {
		args := ParseArgs(raw)
		for _, arg := range args {
			switch arg.(type) {
			case float64, bool, string:
			default:
				t.Fatalf("unexpected argument type %T", arg)
			}
		}
	})
}
