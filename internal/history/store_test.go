package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"affiliate-studio/internal/localstore"
)

func openStore(t *testing.T, quota int64) *localstore.Store {
	t.Helper()
	st, err := localstore.Open(localstore.Options{QuotaBytes: quota})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func item(id string) Item {
	return Item{ID: id, URL: "data:image/png;base64,AA==", Angle: "Front View", Mode: "product", Category: "commercial", Timestamp: 1}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestAppendIsBoundedNewestFirst(t *testing.T) {
	const capacity = 5

	for existing := 0; existing <= capacity; existing++ {
		for k := 1; k <= 7; k++ {
			t.Run(fmt.Sprintf("existing=%d/k=%d", existing, k), func(t *testing.T) {
				s := Open(nil, Options{Capacity: capacity})
				for i := 0; i < existing; i++ {
					s.Append(item(fmt.Sprintf("old%d", i)))
				}
				before := s.List()

				batch := make([]Item, k)
				for i := range batch {
					batch[i] = item(fmt.Sprintf("new%d", i))
				}
				got := s.Append(batch...)

				wantLen := min(capacity, existing+k)
				require.Len(t, got, wantLen)

				kept := batch[max(0, k-capacity):]
				want := append(ids(kept), ids(before)...)[:wantLen]
				assert.Equal(t, want, ids(got))
			})
		}
	}
}

func TestAppendOversizedBatchKeepsLatest(t *testing.T) {
	s := Open(nil, Options{Capacity: 2})
	s.Append(item("old"))

	got := s.Append(item("a"), item("b"), item("c"))
	assert.Equal(t, []string{"b", "c"}, ids(got))
}

func TestAppendStampsMissingFields(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Open(nil, Options{Now: func() time.Time { return now }})

	got := s.Append(Item{URL: "u"})
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, now.UnixMilli(), got[0].Timestamp)
	assert.True(t, now.Equal(got[0].Time()))

	fresh := s.NewItem("u2", "ECU", "fashion", "commercial")
	assert.Equal(t, now.UnixMilli(), fresh.Timestamp)
	assert.NotEqual(t, got[0].ID, fresh.ID)
}

func TestDeleteKeepsOthersInOrder(t *testing.T) {
	backend := openStore(t, 0)
	s := Open(backend, Options{})
	s.Append(item("a"), item("b"), item("c"), item("d"))

	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.List()))

	reopened := Open(backend, Options{})
	assert.Equal(t, []string{"a", "c", "d"}, ids(reopened.List()))

	_, ok := reopened.Get("c")
	assert.True(t, ok)
	_, ok = reopened.Get("b")
	assert.False(t, ok)
}

func TestClearRemovesPersistedRecord(t *testing.T) {
	backend := openStore(t, 0)
	s := Open(backend, Options{Key: "hist"})
	s.Append(item("a"), item("b"))

	_, err := backend.Get("hist")
	require.NoError(t, err)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	_, err = backend.Get("hist")
	assert.ErrorIs(t, err, localstore.ErrNotFound)
	assert.Empty(t, Open(backend, Options{Key: "hist"}).List())
}

func TestQuotaExceededKeepsWorkingInMemory(t *testing.T) {
	backend := openStore(t, 200)
	s := Open(backend, Options{})

	s.Append(Item{ID: "small", URL: "x", Timestamp: 1})
	require.True(t, s.Persisted())

	big := Item{ID: "big", URL: "data:image/png;base64," + strings.Repeat("A", 500), Timestamp: 2}
	got := s.Append(big)

	assert.False(t, s.Persisted())
	assert.Equal(t, []string{"big", "small"}, ids(got))

	// Not even the newest item fits, so no stale record is left behind.
	assert.Empty(t, Open(backend, Options{}).List())
}

func TestQuotaExceededPersistsNewestPrefix(t *testing.T) {
	backend := openStore(t, 400)
	s := Open(backend, Options{})

	wide := func(id string) Item {
		return Item{ID: id, URL: strings.Repeat("A", 200), Timestamp: 1}
	}
	s.Append(wide("a"))
	require.True(t, s.Persisted())

	got := s.Append(wide("b"))
	assert.Equal(t, []string{"b", "a"}, ids(got))
	assert.False(t, s.Persisted())
	assert.Equal(t, []string{"b"}, ids(Open(backend, Options{}).List()))

	// Once everything fits again the full list is written.
	require.True(t, s.Delete("a"))
	assert.True(t, s.Persisted())
	assert.Equal(t, []string{"b"}, ids(Open(backend, Options{}).List()))
}

func TestDeleteOverQuotaStaysDeletedAfterReopen(t *testing.T) {
	backend := openStore(t, 200)
	s := Open(backend, Options{})

	s.Append(Item{ID: "small", URL: "x", Timestamp: 1})
	s.Append(Item{ID: "big", URL: "data:image/png;base64," + strings.Repeat("A", 500), Timestamp: 2})

	require.True(t, s.Delete("small"))
	assert.Equal(t, []string{"big"}, ids(s.List()))

	assert.NotContains(t, ids(Open(backend, Options{}).List()), "small")
}

func TestOpenToleratesCorruptRecord(t *testing.T) {
	backend := openStore(t, 0)
	require.NoError(t, backend.SetString(DefaultKey, "{not json"))

	s := Open(backend, Options{})
	assert.Equal(t, 0, s.Len())

	s.Append(item("a"))
	assert.True(t, s.Persisted())
}

func TestOpenTruncatesToCapacity(t *testing.T) {
	backend := openStore(t, 0)
	raw, err := json.Marshal([]Item{item("a"), item("b"), item("c")})
	require.NoError(t, err)
	require.NoError(t, backend.Set(DefaultKey, raw))

	s := Open(backend, Options{Capacity: 2})
	assert.Equal(t, []string{"a", "b"}, ids(s.List()))
}

func TestExportFormats(t *testing.T) {
	s := Open(nil, Options{})
	s.Append(item("a"), item("b"))

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Export(&buf, FormatJSON))
		var got []Item
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, s.List(), got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Export(&buf, FormatYAML))
		var got []Item
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, s.List(), got)
	})

	t.Run("parquet", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, s.Export(&buf, FormatParquet))

		reader := parquet.NewGenericReader[Item](bytes.NewReader(buf.Bytes()))
		defer reader.Close()
		assert.EqualValues(t, 2, reader.NumRows())
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, s.Export(&bytes.Buffer{}, Format("csv")))
		_, err := ParseFormat("csv")
		assert.Error(t, err)
	})
}
