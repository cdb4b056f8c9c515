package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyRequestDecoding(t *testing.T) {
	t.Run("phone as string", func(t *testing.T) {
		var req IdentifyRequest
		require.NoError(t, json.Unmarshal([]byte(`{"email":"a@x.com","phoneNumber":"123456"}`), &req))
		require.NotNil(t, req.PhoneValue())
		assert.Equal(t, "123456", *req.PhoneValue())
	})

	t.Run("phone as number", func(t *testing.T) {
		var req IdentifyRequest
		require.NoError(t, json.Unmarshal([]byte(`{"phoneNumber":123456}`), &req))
		require.NotNil(t, req.PhoneValue())
		assert.Equal(t, "123456", *req.PhoneValue())
	})

	t.Run("phone null", func(t *testing.T) {
		var req IdentifyRequest
		require.NoError(t, json.Unmarshal([]byte(`{"email":"a@x.com","phoneNumber":null}`), &req))
		assert.Nil(t, req.PhoneValue())
	})

	t.Run("phone absent", func(t *testing.T) {
		var req IdentifyRequest
		require.NoError(t, json.Unmarshal([]byte(`{"email":"a@x.com"}`), &req))
		assert.Nil(t, req.PhoneValue())
	})

	t.Run("phone as object rejected", func(t *testing.T) {
		var req IdentifyRequest
		assert.Error(t, json.Unmarshal([]byte(`{"phoneNumber":{}}`), &req))
	})
}

func TestContactPrimaryID(t *testing.T) {
	primary := &Contact{ID: 1, LinkPrecedence: PrecedencePrimary}
	assert.True(t, primary.IsPrimary())
	assert.Equal(t, int64(1), primary.PrimaryID())

	linked := int64(1)
	secondary := &Contact{ID: 2, LinkedID: &linked, LinkPrecedence: PrecedenceSecondary}
	assert.False(t, secondary.IsPrimary())
	assert.Equal(t, int64(1), secondary.PrimaryID())
}
