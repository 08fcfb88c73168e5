package source

import (
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "OFNT3AA1/OFNT3AA1.des", []byte("descriptor"), 0o644))
	require.NoError(t, util.WriteFile(fs, "OFNT3AA1/OFNT3AA1.dat", []byte("data"), 0o644))
	// Descriptor without data: not usable.
	require.NoError(t, util.WriteFile(fs, "OFNT1BA1/OFNT1BA1.des", []byte("descriptor"), 0o644))

	s := NewStore(fs)

	assert.True(t, s.Has("OFNT3AA1"))
	assert.False(t, s.Has("OFNT1BA1"), "data file missing")
	assert.False(t, s.Has("INMT4AA1"))

	des, err := s.Descriptor("OFNT3AA1")
	require.NoError(t, err)
	assert.Equal(t, []byte("descriptor"), des)

	f, err := s.OpenData("OFNT3AA1")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, []byte("data"), data)

	_, err = s.Descriptor("INMT4AA1")
	assert.Error(t, err)
	_, err = s.OpenData("INMT4AA1")
	assert.Error(t, err)
}
