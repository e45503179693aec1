// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requestIDPattern = regexp.MustCompile(`^[a-z]{2}_[0-9a-f]{5}_[0-9a-f]{4,}$`)

func TestRequestIDGeneratorFormat(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	gen := NewRequestIDGenerator(func() time.Time { return now })

	id := gen.Next()
	assert.Regexp(t, requestIDPattern, id)
}

func TestRequestIDGeneratorSequenceIncrements(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	gen := NewRequestIDGenerator(func() time.Time { return now })

	first := gen.Next()
	second := gen.Next()
	require.NotEqual(t, first, second)

	assert.Equal(t, first[:8], second[:8], "same minute should keep the same MMMMM field")
	assert.Equal(t, "0000", first[9:])
	assert.Equal(t, "0001", second[9:])
}

func TestRequestIDGeneratorResetsOnMinuteChange(t *testing.T) {
	minute := int64(1_700_000_000)
	now := time.Unix(minute, 0)
	gen := NewRequestIDGenerator(func() time.Time { return now })

	gen.Next()
	gen.Next()
	third := gen.Next()
	assert.Equal(t, "0002", third[9:])

	now = time.Unix(minute+60, 0)
	fourth := gen.Next()
	assert.Equal(t, "0000", fourth[9:], "sequence resets to 0 on minute rollover")
	assert.NotEqual(t, third[3:8], fourth[3:8], "MMMMM field changes on minute rollover")
}

func TestRequestIDGeneratorConcurrentUnique(t *testing.T) {
	gen := NewRequestIDGenerator(time.Now)
	const n = 200
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() { ids <- gen.Next() }()
	}
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := <-ids
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
