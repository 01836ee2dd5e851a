package tlsboot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallAndFrom(t *testing.T) {
	ctx := Install(context.Background(), Bootstrap{Table: "fake-table", ThreadID: 7})

	b, ok := From(ctx)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), b.ThreadID)
	assert.Equal(t, "fake-table", b.Table)
}

func TestFromWithoutInstall(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}
