package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCloneKeepsCodeAndMatches(t *testing.T) {
	clone := Clone(ErrUnknownUser, "student not found")
	assert.Equal(t, "student not found", clone.Message)
	assert.True(t, errors.Is(clone, ErrUnknownUser))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.True(t, HasCode(clone, ErrUnknownUser.Code))
}

func TestFromErrorNil(t *testing.T) {
	assert.Nil(t, FromError(nil))
}
