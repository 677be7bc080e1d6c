package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")

	err := Init("hexsim", "0.0.1", fname)
	assert.Nil(t, err)

	_, span := StartSpan(context.Background(), "test", "INTERNAL")
	span.WithAttributes(map[string]string{"k": "v"})
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	assert.Nil(t, err)
	assert.NotEmpty(t, data)
}
