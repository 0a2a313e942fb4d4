package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(KindValidation, "missing interfaces pattern")
	assert.Equal(t, "missing interfaces pattern", err.Error())

	wrapped := Wrap(err, KindInternal, "loading config")
	assert.Equal(t, "loading config: missing interfaces pattern", wrapped.Error())
	assert.True(t, Is(wrapped, err))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindInternal, "nothing"))
	assert.NoError(t, Wrapf(nil, KindInternal, "nothing %d", 1))
	assert.NoError(t, Attr(nil, "k", "v"))
}

func TestGetKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", New(KindValidation, "bad"), KindValidation},
		{"outer kind wins", Wrap(New(KindMalformed, "bad"), KindUnavailable, "bind"), KindUnavailable},
		{"formatted", Errorf(KindNotFound, "no interface for %s", "10.0.0.1"), KindNotFound},
		{"stdlib error", errors.New("plain"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetKind(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestAttributes(t *testing.T) {
	err := New(KindValidation, "invalid pattern")
	err = Attr(err, "field", "from")
	err = Attr(err, "rule", 2)

	wrapped := Attr(Wrap(err, KindInternal, "load"), "path", "/etc/mdns.json")
	attrs := GetAttributes(wrapped)
	assert.Equal(t, "from", attrs["field"])
	assert.Equal(t, 2, attrs["rule"])
	assert.Equal(t, "/etc/mdns.json", attrs["path"])
	assert.Len(t, LogArgs(wrapped), 6)
}

func TestAttrWrapsPlainError(t *testing.T) {
	plain := errors.New("boom")
	err := Attr(plain, "iface", "eth0")

	var e *Error
	require.True(t, As(err, &e))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, plain, Unwrap(err))
}

func TestAttrKeepsOuterWrapper(t *testing.T) {
	inner := New(KindValidation, "invalid pattern")
	outer := fmt.Errorf("loading rule 3: %w", inner)

	err := Attr(outer, "path", "/etc/mdns.yaml")
	assert.Equal(t, "loading rule 3: invalid pattern", err.Error())
	assert.Equal(t, KindValidation, GetKind(err))
	assert.Equal(t, "/etc/mdns.yaml", GetAttributes(err)["path"])
	assert.True(t, Is(err, inner))

	var e *Error
	require.True(t, As(inner, &e))
	assert.Empty(t, e.Attributes)
}
