package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedSecret_Verify(t *testing.T) {
	v := NewSharedSecret("s3cret")

	p, err := v.Verify(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, p.Subject)

	for _, token := range []string{"", "s3cre", "s3cret ", "S3CRET", "s3cret-longer"} {
		p, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthorized, token)
		assert.Nil(t, p)
	}
}

func TestSharedSecret_EmptySecretRejectsEmptyToken(t *testing.T) {
	v := NewSharedSecret("")

	_, err := v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
