package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStoreReadWriteDelete(t *testing.T) {
	s := NewMemStore()

	p, err := s.Has("/jstz_account/tz1A")
	require.NoError(t, err)
	require.Equal(t, None, p)

	require.NoError(t, s.WriteAll("/jstz_account/tz1A", []byte("hello")))
	p, err = s.Has("/jstz_account/tz1A")
	require.NoError(t, err)
	require.True(t, p.HasValue())

	got, err := s.ReadAll("/jstz_account/tz1A")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	require.NoError(t, s.Delete("/jstz_account/tz1A"))
	_, err = s.ReadAll("/jstz_account/tz1A")
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, NotFound, serr.Kind)
}

func TestMemStoreSubtreeAndCount(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.WriteAll("/jstz_kv/KT1X/a", []byte("1")))
	require.NoError(t, s.WriteAll("/jstz_kv/KT1X/b", []byte("2")))

	n, err := s.CountSubkeys("/jstz_kv/KT1X")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	p, err := s.Has("/jstz_kv/KT1X")
	require.NoError(t, err)
	require.True(t, p.HasSubtree())
	require.False(t, p.HasValue())

	require.NoError(t, s.Delete("/jstz_kv/KT1X"))
	n, err = s.CountSubkeys("/jstz_kv/KT1X")
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestPathTooLong(t *testing.T) {
	s := NewMemStore()
	long := make([]byte, MaxPathLen+10)
	for i := range long {
		long[i] = 'a'
	}
	_, err := s.Has(string(long))
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, PathTooLong, serr.Kind)
}
