package transcript

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndEntriesCopy(t *testing.T) {
	tr := New()
	tr.Append(OriginUser, "/help", nil)
	tr.Append(OriginHandler, "commands...", map[string]string{"success": "true"})

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, OriginUser, entries[0].Origin)
	assert.Equal(t, "true", entries[1].Metadata["success"])
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	entries[0].Content = "mutated"
	assert.Equal(t, "/help", tr.Entries()[0].Content)
}

func TestListenersSeeStoredOrder(t *testing.T) {
	tr := New()
	var seen []string
	tr.OnAppend(func(e Entry) { seen = append(seen, e.ID) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Append(OriginRealtime, fmt.Sprint(i), nil)
		}(i)
	}
	wg.Wait()

	entries := tr.Entries()
	require.Len(t, entries, 50)
	require.Len(t, seen, 50)
	for i, e := range entries {
		assert.Equal(t, e.ID, seen[i])
	}
	assert.Equal(t, 50, tr.Len())
}

func TestFollowSeesEveryEntryOnce(t *testing.T) {
	tr := New()
	tr.Append(OriginSystem, "welcome", nil)

	var live []string
	backlog := tr.Follow(func(e Entry) { live = append(live, e.Content) })
	tr.Append(OriginUser, "/status", nil)

	require.Len(t, backlog, 1)
	assert.Equal(t, "welcome", backlog[0].Content)
	assert.Equal(t, []string{"/status"}, live)
}
