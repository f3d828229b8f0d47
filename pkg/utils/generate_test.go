package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReference_Format(t *testing.T) {
	ref := GenerateReference()

	re := regexp.MustCompile(`^TRV-\d{8}-\d{6}-\d{4}$`)
	assert.True(t, re.MatchString(ref), "unexpected reference format: %s", ref)
}

func TestGenerateReference_DatePartIsValid(t *testing.T) {
	ref := GenerateReference()

	parts := strings.Split(ref, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "TRV", parts[0])

	_, err := time.Parse("20060102", parts[1])
	assert.NoError(t, err)

	_, err = time.Parse("150405", parts[2])
	assert.NoError(t, err)
}
