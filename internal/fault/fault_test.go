package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pro  bool
		want Kind
	}{
		{
			name: "pro model not found is entitlement",
			err:  errors.New("Error 404, Message: Requested entity was not found., Status: NOT_FOUND, Details: []"),
			pro:  true,
			want: Entitlement,
		},
		{
			name: "pro permission denied is entitlement",
			err:  errors.New("Error 403, Message: The caller does not have permission, Status: PERMISSION_DENIED"),
			pro:  true,
			want: Entitlement,
		},
		{
			name: "billing hint on standard model is entitlement",
			err:  errors.New("Error 400, Message: This model requires billing to be enabled"),
			want: Entitlement,
		},
		{
			name: "invalid key is configuration",
			err:  errors.New("Error 400, Message: API key not valid. Please pass a valid API key., Status: INVALID_ARGUMENT"),
			pro:  true,
			want: Configuration,
		},
		{
			name: "standard permission denied is configuration",
			err:  errors.New("Error 403, Message: forbidden, Status: PERMISSION_DENIED"),
			want: Configuration,
		},
		{
			name: "rate limit is transport",
			err:  errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"),
			pro:  true,
			want: Transport,
		},
		{
			name: "server error is transport",
			err:  errors.New("Error 503, Message: The model is overloaded, Status: UNAVAILABLE"),
			want: Transport,
		},
		{
			name: "deadline is transport",
			err:  fmt.Errorf("do request: %w", context.DeadlineExceeded),
			want: Transport,
		},
		{
			name: "unknown error never escapes unlabelled",
			err:  errors.New("something odd"),
			want: Transport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("generate image", tt.err, tt.pro)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.want, fe.Kind)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := NoImage("generate image")
	err := Classify("batch", fmt.Errorf("angle front: %w", orig), true)

	assert.Equal(t, EmptyResult, KindOf(err))
	assert.Nil(t, Classify("noop", nil, false))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(Transport, "op", errors.New("Error 429"))))
	assert.False(t, Retryable(New(Transport, "op", context.Canceled)))
	assert.False(t, Retryable(NoImage("op")))
	assert.False(t, Retryable(MissingCredential("op")))
	assert.False(t, Retryable(nil))
}

func TestDescribeDistinguishesConfigurationFromEntitlement(t *testing.T) {
	cfg := Describe(MissingCredential("generate"))
	ent := Describe(New(Entitlement, "generate", errors.New("Error 404")))

	assert.NotEqual(t, cfg.Message, ent.Message)
	assert.Equal(t, RemedyOpenPicker, cfg.Remedy)
	assert.True(t, cfg.Persistent)
	assert.Equal(t, RemedyLowerQuality, ent.Remedy)
	assert.False(t, ent.Persistent)
	assert.Equal(t, "entitlement", ent.Kind)
}

func TestDescribeValidationCarriesReason(t *testing.T) {
	n := Describe(Validationf("generate", "upload at least one product photo"))

	assert.Equal(t, "Invalid input: upload at least one product photo", n.Message)
	assert.Equal(t, RemedyFixInput, n.Remedy)
	assert.Equal(t, Notice{}, Describe(nil))
}
