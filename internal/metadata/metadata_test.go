package metadata

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName)

	l, err := OpenLog(path, SampleHeader)
	require.NoError(t, err)
	require.NoError(t, l.Append(SampleRow{ImageID: "1", Path: "a.png", Correct: true}))

	l, err = OpenLog(path, SampleHeader)
	require.NoError(t, err)
	require.NoError(t, l.Append(SampleRow{ImageID: "2", Path: "b.png"}))

	rows, err := ReadLog(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"image_id", "path", "is_correct"},
		{"1", "a.png", "1"},
		{"2", "b.png", "0"},
	}, rows)
}

func TestLogRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	_, err := OpenLog(path, SampleHeader)
	require.NoError(t, err)

	_, err = OpenLog(path, ComparisonHeader)
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestRowRecords(t *testing.T) {
	assert.Equal(t, []string{"7_0", "7_0", "c/7_0_compare.png", "1"},
		ComparisonRow{ImageID1: "7_0", ImageID2: "7_0", Path: "c/7_0_compare.png", CorrectIndex: 1}.Record())
	assert.Equal(t, []string{"9", "x.jpg", "3;12;5"},
		CategoryRow{ImageID: "9", Path: "x.jpg", Categories: []int{3, 12, 5}}.Record())

	l, err := OpenLog(filepath.Join(t.TempDir(), FileName), CategoryHeader)
	require.NoError(t, err)
	assert.Error(t, l.Append(SampleRow{}))
}

func TestLogConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	l, err := OpenLog(path, SampleHeader)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(SampleRow{ImageID: fmt.Sprint(i), Path: fmt.Sprintf("p,%d.png", i)}))
		}(i)
	}
	wg.Wait()

	rows, err := ReadLog(path)
	require.NoError(t, err)
	require.Len(t, rows, 51)
	for _, r := range rows[1:] {
		assert.Len(t, r, 3)
	}
}

func TestRunManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewRunManifest("segreplace", "dev", 42, map[string]int{"count": 10})
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)

	m.Generated = 8
	require.NoError(t, m.Write(dir))

	got, err := ReadRunManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, 8, got.Generated)
	assert.Equal(t, int64(42), got.Seed)
}
