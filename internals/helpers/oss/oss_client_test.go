package helper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildObjectKey(t *testing.T) {
	now := time.Date(2025, 7, 15, 9, 30, 5, 0, time.UTC)
	key := buildObjectKey("archive", "imports/Marks", "5th A Term 1.xlsx", now)

	assert.True(t, strings.HasPrefix(key, "archive/imports/marks/2025/07/15/5th-a-term-1_20250715_093005_"), key)
	assert.True(t, strings.HasSuffix(key, ".xlsx"), key)
}

func TestBuildObjectKey_NoPrefix(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	key := buildObjectKey("", "", ".pdf", now)
	assert.True(t, strings.HasPrefix(key, "2025/01/02/file_20250102_000000_"), key)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "report-card", slugify(" Report_Card "))
	assert.Equal(t, "file", slugify("???"))
}

type countPurger struct {
	n   int
	err error
}

func (p *countPurger) Purge(context.Context) (int, error) { return p.n, p.err }

func TestRunPurgers_SumsAndSkipsFailures(t *testing.T) {
	total := runPurgers(context.Background(), []Purger{
		&countPurger{n: 2},
		nil,
		&countPurger{n: 5, err: errors.New("redis down")},
		&countPurger{n: 1},
	})
	assert.Equal(t, 3, total)
}

func TestMockArchiver(t *testing.T) {
	m := &MockArchiver{}
	key, err := m.Archive(context.Background(), "reports", "asha.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Contains(t, key, "test/reports/")
	require.Len(t, m.Calls, 1)
	assert.Equal(t, 8, m.Calls[0].Size)

	m.Err = errors.New("boom")
	_, err = m.Archive(context.Background(), "reports", "b.pdf", []byte("x"))
	assert.Error(t, err)
	assert.Len(t, m.Calls, 1)
}
