package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubExtractor is a canned Extractor that lets these tests exercise the
// interface's result and error shapes without a real PDF parser.
type stubExtractor struct {
	result Result
	err    error
}

func (s stubExtractor) ExtractText(context.Context, []byte) (Result, error) {
	return s.result, s.err
}

func TestErrEmptyText_IsDistinguishable(t *testing.T) {
	var e Extractor = stubExtractor{err: ErrEmptyText{}}
	_, err := e.ExtractText(context.Background(), nil)
	assert.ErrorAs(t, err, &ErrEmptyText{})
}

func TestExtractor_SuccessPath(t *testing.T) {
	var e Extractor = stubExtractor{result: Result{Text: "hello", PageCount: 3}}
	res, err := e.ExtractText(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, 3, res.PageCount)
}
