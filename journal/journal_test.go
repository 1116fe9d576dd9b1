package journal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/interfaces"
)

func orphan(addr string, at time.Time) interfaces.OrphanRecord {
	return interfaces.OrphanRecord{
		ContentAddress: interfaces.ContentAddress(addr),
		Student:        common.HexToAddress("0xAAA"),
		DocType:        "Transcript",
		Reason:         "transaction rejected",
		RecordedAt:     at.UTC(),
	}
}

func testJournals(t *testing.T) map[string]interfaces.OrphanJournal {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	inMemBadger, err := OpenBadgerJournal("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { inMemBadger.Close() })

	diskBadger, err := OpenBadgerJournal(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { diskBadger.Close() })

	return map[string]interfaces.OrphanJournal{
		"memory":        NewMemoryJournal(),
		"badger-memory": inMemBadger,
		"badger-disk":   diskBadger,
	}
}

func TestJournal_RecordAndList(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, j := range testJournals(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := j.List(ctx)
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			first := orphan("bafk-first", base)
			second := orphan("bafk-second", base.Add(time.Second))
			same := orphan("bafk-first", base.Add(time.Second))

			require.NoError(t, j.Record(ctx, first))
			require.NoError(t, j.Record(ctx, second))
			require.NoError(t, j.Record(ctx, same))

			records, err := j.List(ctx)
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, first.ContentAddress, records[0].ContentAddress)
			assert.Equal(t, first.Student, records[0].Student)
			assert.Equal(t, first.DocType, records[0].DocType)
			assert.True(t, first.RecordedAt.Equal(records[0].RecordedAt))
			assert.Equal(t, interfaces.ContentAddress("bafk-second"), records[1].ContentAddress)
			assert.Equal(t, interfaces.ContentAddress("bafk-first"), records[2].ContentAddress)
		})
	}
}

func TestBadgerJournal_Persists(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	j, err := OpenBadgerJournal(dir, logger)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, orphan("bafk-durable", time.Now())))
	require.NoError(t, j.Close())

	reopened, err := OpenBadgerJournal(dir, logger)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, interfaces.ContentAddress("bafk-durable"), records[0].ContentAddress)
}
