package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmailAddress(t *testing.T) {
	valid := []string{
		"user@example.com",
		"  User@Example.COM ",
		"first.last+crm@sub.domain.ru",
	}
	for _, raw := range valid {
		addr, err := ParseEmailAddress(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, addr.Address(), addr.String())
		assert.False(t, addr.IsInvalid())
		assert.False(t, addr.IsOptedOut())
	}

	// normalized to lowercase and trimmed
	addr, err := ParseEmailAddress("  User@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", addr.Address())

	invalid := []string{
		"",
		"   ",
		"not-an-email",
		"user@",
		"@example.com",
		"Display Name <user@example.com>",
		"user@example.com, second@example.com",
	}
	for _, raw := range invalid {
		_, err := ParseEmailAddress(raw)
		assert.ErrorIs(t, err, ErrInvalidEmailAddress, raw)
	}
}

func TestEmailAddressFlagRoundTrip(t *testing.T) {
	v, err := ParseEmailAddress("user@example.com")
	require.NoError(t, err)

	assert.Equal(t, v, v.WithInvalid().WithoutInvalid())
	assert.Equal(t, v, v.WithOptedOut().WithoutOptedOut())

	flagged := v.WithInvalid().WithOptedOut()
	assert.Equal(t, v, flagged.WithoutInvalid().WithoutOptedOut())
	assert.Equal(t, v.Address(), flagged.Address())
}

func TestEmailAddressFlagIndependence(t *testing.T) {
	v, err := ParseEmailAddress("user@example.com")
	require.NoError(t, err)

	optedOut := v.WithOptedOut()
	assert.Equal(t, optedOut.IsOptedOut(), optedOut.WithInvalid().IsOptedOut())
	assert.Equal(t, v.IsOptedOut(), v.WithInvalid().IsOptedOut())
	assert.Equal(t, v.IsInvalid(), v.WithOptedOut().IsInvalid())
}

func TestEmailAddressImmutable(t *testing.T) {
	v, err := ParseEmailAddress("user@example.com")
	require.NoError(t, err)

	marked := v.WithInvalid()
	assert.True(t, marked.IsInvalid())
	assert.False(t, v.IsInvalid(), "receiver must stay unchanged")

	opted := v.WithOptedOut()
	assert.True(t, opted.IsOptedOut())
	assert.False(t, v.IsOptedOut(), "receiver must stay unchanged")
	assert.Equal(t, "user@example.com", v.Address())
}

func TestEmailAddressJSON(t *testing.T) {
	v, err := ParseEmailAddress("user@example.com")
	require.NoError(t, err)
	v = v.WithOptedOut()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var restored EmailAddress
	require.NoError(t, json.Unmarshal(b, &restored))
	assert.Equal(t, v, restored)

	val, err := v.Value()
	require.NoError(t, err)

	var scanned EmailAddress
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, v, scanned)

	var empty EmailAddress
	require.NoError(t, empty.Scan(nil))
	assert.True(t, empty.IsZero())
}
