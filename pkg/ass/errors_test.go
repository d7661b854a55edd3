package ass_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/smooth-storage/pkg/ass"
)

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("signing link: %w", ass.URLDoesNotMatchAccount("http://other/unrelated"))

	assert.ErrorIs(t, err, ass.ErrURLDoesNotMatchAccount)
	assert.NotErrorIs(t, err, ass.ErrTransport)
	assert.Equal(t, ass.KindURLDoesNotMatchAccount, ass.KindOf(err))
	assert.Contains(t, err.Error(), "http://other/unrelated")
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := ass.Transport("GET http://url/files", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ass.ErrTransport)
	assert.Equal(t, "transport error: GET http://url/files: unexpected EOF", err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, ass.ErrorKind(0), ass.KindOf(errors.New("boom")))
	assert.Equal(t, ass.ErrorKind(0), ass.KindOf(nil))
}

func TestErrorIsDoesNotMatchSpecificErrors(t *testing.T) {
	a := ass.InvalidFileName("/", nil)
	b := ass.InvalidFileName("/other", nil)

	assert.ErrorIs(t, a, ass.ErrInvalidFileName)
	assert.NotErrorIs(t, a, b)
}
