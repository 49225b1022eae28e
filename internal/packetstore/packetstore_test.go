package packetstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComputesPacketCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")

	store, err := New(path, 10, 4)
	require.NoError(t, err)

	assert.EqualValues(t, 3, store.PacketCount())
	assert.EqualValues(t, 10, store.TorrentSize())

	avail := store.ReadPacketAvailability()
	for i := uint(0); i < 3; i++ {
		assert.False(t, avail.Test(i))
	}
}

func TestWriteThenReadPackets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")

	store, err := New(path, 10, 4)
	require.NoError(t, err)

	require.NoError(t, store.WritePackets(0, []byte("ABCD")))
	require.NoError(t, store.WritePackets(1, []byte("efgh")))
	require.NoError(t, store.WritePackets(2, []byte("XY")))

	avail := store.ReadPacketAvailability()
	assert.True(t, avail.Test(0))
	assert.True(t, avail.Test(1))
	assert.True(t, avail.Test(2))

	data, err := store.ReadPackets(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "ABCDefghXY", string(data))

	last, err := store.ReadPackets(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "XY", string(last))
}

func TestReadPacketsOutOfBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")
	store, err := New(path, 10, 4)
	require.NoError(t, err)

	_, err = store.ReadPackets(2, 2)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestReadPacketsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")
	store, err := New(path, 10, 4)
	require.NoError(t, err)

	require.NoError(t, store.WritePackets(0, []byte("ABCD")))

	_, err = store.ReadPackets(0, 2)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFromComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")
	require.NoError(t, os.WriteFile(path, []byte("ABCDabcd"), 0644))

	store, err := FromComplete(path, 4)
	require.NoError(t, err)

	assert.EqualValues(t, 8, store.TorrentSize())
	assert.EqualValues(t, 2, store.PacketCount())

	avail := store.ReadPacketAvailability()
	assert.True(t, avail.Test(0))
	assert.True(t, avail.Test(1))

	data, err := store.ReadPackets(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "ABCDabcd", string(data))
}

func TestSaveAndLoadProgressFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")

	store, err := New(path, 10, 4)
	require.NoError(t, err)
	require.NoError(t, store.WritePackets(0, []byte("ABCD")))
	require.NoError(t, store.SaveProgressToFile())

	resumed, err := FromProgressFile(path + ".progress")
	require.NoError(t, err)

	assert.EqualValues(t, 10, resumed.TorrentSize())
	assert.EqualValues(t, 4, resumed.PacketSize())
	assert.EqualValues(t, 3, resumed.PacketCount())

	avail := resumed.ReadPacketAvailability()
	assert.True(t, avail.Test(0))
	assert.False(t, avail.Test(1))
}

func TestFromProgressFileRejectsShortContentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content")

	store, err := New(path, 10, 4)
	require.NoError(t, err)
	require.NoError(t, store.SaveProgressToFile())

	require.NoError(t, os.Truncate(path, 2))

	_, err = FromProgressFile(path + ".progress")
	assert.Error(t, err)
}
</content>
