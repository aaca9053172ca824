package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsEmptyStrings(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/watch/channels/:id"),
		attribute.String("enduser.id", " "),
		attribute.Int("http.status_code", 200),
	)
	assert.Len(t, attrs, 2)
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := SafeError(errors.New("user alice@example.com not found"))
	assert.NotContains(t, err.Error(), "alice")
	assert.Nil(t, SafeError(nil))
}
