package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	role, err := NormalizeRole("")
	require.NoError(t, err)
	assert.Equal(t, "other", role)

	role, err = NormalizeRole(" Student ")
	require.NoError(t, err)
	assert.Equal(t, "student", role)

	role, err = NormalizeRole("TEACHER")
	require.NoError(t, err)
	assert.Equal(t, "teacher", role)

	_, err = NormalizeRole("principal")
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
}

func TestFormatRole(t *testing.T) {
	assert.Equal(t, "Student", FormatRole("student"))
	assert.Equal(t, "Teacher", FormatRole("teacher"))
	assert.Equal(t, "Other", FormatRole(""))
}
