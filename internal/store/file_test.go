package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestFileStorePutGet(t *testing.T) {
	ctx := context.Background()
	fs := newFileStore(t)

	require.NoError(t, fs.Put(ctx, "tax_state", []byte(`{"a":1}`)))

	data, err := fs.Get(ctx, "tax_state")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)
}

func TestFileStoreGetMissing(t *testing.T) {
	fs := newFileStore(t)

	_, err := fs.Get(context.Background(), "accumulated_rewards")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	fs := newFileStore(t)

	require.NoError(t, fs.Put(ctx, "k1", []byte("first")))
	require.NoError(t, fs.Put(ctx, "k1", []byte("second")))

	data, err := fs.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("accumulated_rewards"))
	assert.NoError(t, ValidateKey("snapshot.2024-01-01"))

	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey("../etc/passwd"))
	assert.Error(t, ValidateKey("a/b"))
	assert.Error(t, ValidateKey("key with spaces"))
}

func TestFileStoreAtomicUpdateFromMissing(t *testing.T) {
	ctx := context.Background()
	fs := newFileStore(t)

	err := fs.AtomicUpdate(ctx, "counter", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte("1"), nil
	})
	require.NoError(t, err)

	data, err := fs.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), data)
}

func TestFileStoreAtomicUpdateNoLostIncrements(t *testing.T) {
	ctx := context.Background()
	fs := newFileStore(t)

	require.NoError(t, fs.Put(ctx, "counter", []byte("0")))

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				err := fs.AtomicUpdate(ctx, "counter", func(current []byte) ([]byte, error) {
					n, err := strconv.Atoi(string(current))
					if err != nil {
						return nil, err
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	data, err := fs.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers*perWorker), string(data))
}

func TestFileStoreAtomicUpdateFnErrorLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	fs := newFileStore(t)

	require.NoError(t, fs.Put(ctx, "rec", []byte("stable")))

	err := fs.AtomicUpdate(ctx, "rec", func([]byte) ([]byte, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)

	data, err := fs.Get(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, []byte("stable"), data)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Put(ctx, "tax_state", []byte(`{"total":5}`)))
	require.NoError(t, fs.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	data, err := reopened.Get(ctx, "tax_state")
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 5, decoded["total"])
}
