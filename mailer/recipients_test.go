package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipientsCommaSeparated(t *testing.T) {
	got, err := ParseRecipients("a@example.com, b@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
}

func TestParseRecipientsSemicolonSeparated(t *testing.T) {
	got, err := ParseRecipients("a@example.com;b@example.com; c@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, got)
}

func TestParseRecipientsJSONArray(t *testing.T) {
	got, err := ParseRecipients(`["a@example.com", "b@example.com"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
}

func TestParseRecipientsMalformedJSONFallsBack(t *testing.T) {
	// Looks like JSON but is not; treated as a delimited list instead.
	got, err := ParseRecipients(`[a@example.com, b@example.com`)
	require.NoError(t, err)
	assert.Equal(t, []string{"[a@example.com", "b@example.com"}, got)
}

func TestParseRecipientsSingleAddress(t *testing.T) {
	got, err := ParseRecipients("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, got)
}

func TestParseRecipientsEmpty(t *testing.T) {
	_, err := ParseRecipients("")
	assert.Error(t, err)

	_, err = ParseRecipients("   ")
	assert.Error(t, err)

	_, err = ParseRecipients(",,;")
	assert.Error(t, err)

	_, err = ParseRecipients(`[]`)
	assert.Error(t, err)
}
