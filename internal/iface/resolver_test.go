package iface

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/arprobe/internal/core"
)

func TestKindUnmarshalText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("netlink")))
	assert.Equal(t, KindNetlink, k)

	require.NoError(t, k.UnmarshalText(nil))
	assert.Equal(t, KindIoctl, k)

	assert.Error(t, k.UnmarshalText([]byte("sysfs")))
}

func TestNew(t *testing.T) {
	r, err := New(KindIoctl)
	require.NoError(t, err)
	assert.IsType(t, &IoctlResolver{}, r)

	r, err = New(KindNetlink)
	require.NoError(t, err)
	assert.IsType(t, &NetlinkResolver{}, r)

	_, err = New("sysfs")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
