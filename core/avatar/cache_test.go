package avatar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok := c.Get(ctx, aJPG)
	assert.False(t, ok)

	c.Put(ctx, aJPG, valid(""))
	c.Put(ctx, bJPG, invalid(KindTimeout, "timeout"))
	succeeded, failed := c.Len()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	res, ok := c.Get(ctx, bJPG)
	assert.True(t, ok)
	assert.Equal(t, KindTimeout, res.Kind)

	// a candidate lives in one set only
	c.Put(ctx, bJPG, valid(""))
	succeeded, failed = c.Len()
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 0, failed)

	c.Delete(ctx, aJPG, bJPG, xJPG)
	succeeded, failed = c.Len()
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
}

func TestErrorKind_Text(t *testing.T) {
	for kind, name := range kindNames {
		text, err := kind.MarshalText()
		assert.NoError(t, err)
		assert.Equal(t, name, string(text))

		var got ErrorKind
		assert.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, kind, got)
	}

	var k ErrorKind
	assert.Error(t, k.UnmarshalText([]byte("boom")))
}
