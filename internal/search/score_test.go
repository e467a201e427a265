package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTokens(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"whitespace fields", "log in", []string{"log", "in"}},
		{"camelCase split", "userLogsIn", []string{"user", "logs", "in"}},
		{"mixed", "open HomePage", []string{"open", "home", "page"}},
		{"lowercased", "LOGIN", []string{"login"}},
		{"user prefix split", "userlogin", []string{"user", "login"}},
		{"user alone stays whole", "user", []string{"user"}},
		{"user prefix splits even tiny suffixes", "users", []string{"user", "s"}},
		{"multi-token query skips user split", "user login", []string{"user", "login"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryTokens(tt.query))
		})
	}
}

func TestScoreTiers(t *testing.T) {
	t.Run("exact substring scores in the 300 band", func(t *testing.T) {
		score, ok := Score("I log in as admin", "log in")
		assert.True(t, ok)
		assert.Equal(t, 300-2, score)
	})

	t.Run("earlier exact match scores higher", func(t *testing.T) {
		early, _ := Score("log in now", "log in")
		late, _ := Score("I want to log in", "log in")
		assert.Greater(t, early, late)
	})

	t.Run("stripped substring scores in the 200 band", func(t *testing.T) {
		// "log: in" matches "log in" only once punctuation is stripped
		score, ok := Score("I log: in quickly", "log in")
		assert.True(t, ok)
		assert.Equal(t, 200-1, score)
	})

	t.Run("subsequence scores in the 100 band", func(t *testing.T) {
		// "login" threads through "logmein" with a gap of 2
		score, ok := Score("log me in", "log in")
		assert.True(t, ok)
		assert.Equal(t, 100-2, score)
	})

	t.Run("tiers never interleave", func(t *testing.T) {
		exact, ok := Score("abc log in xyz something", "log in")
		assert.True(t, ok)
		assert.Greater(t, exact, 200)
	})
}

func TestScoreContainmentGate(t *testing.T) {
	t.Run("every token must appear in some word", func(t *testing.T) {
		_, ok := Score("I log in", "log out")
		assert.False(t, ok)
	})

	t.Run("token inside a longer word counts", func(t *testing.T) {
		_, ok := Score("I navigate to settings", "gate")
		assert.True(t, ok)
	})

	t.Run("token split across words does not count", func(t *testing.T) {
		// "inas" spans "in as", no single word contains it
		_, ok := Score("I log in as admin", "inas")
		assert.False(t, ok)
	})
}

func TestScoreIdempotent(t *testing.T) {
	text := "User: logs in with valid credentials"
	for _, query := range []string{"logs in", "userlogsin", "credentials", ""} {
		a, okA := Score(text, query)
		b, okB := Score(text, query)
		assert.Equal(t, a, b, "query %q", query)
		assert.Equal(t, okA, okB, "query %q", query)
	}
}

func TestSubsequenceWindow(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		query  string
		window int
		found  bool
	}{
		{"adjacent", "abcdef", "abc", 3, true},
		{"with gaps", "axbxc", "abc", 5, true},
		{"not present", "abc", "abd", 0, false},
		{"query longer than text", "ab", "abc", 0, false},
		{"empty query", "abc", "", 0, false},
		{"keeps minimum across scan", "a..b..c abc", "abc", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, found := subsequenceWindow(tt.text, tt.query)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.window, window)
			}
		})
	}
}
