package krt

import "strings"

// StringView mirrors original_source/compile/proxy/string_view.h: a
// pointer/length pair into column storage, avoiding a copy for the
// common case of comparing or hashing a stored string in place.
type StringView struct {
	data []byte
}

func NewStringView(data []byte) StringView { return StringView{data: data} }

func (s StringView) Len() int       { return len(s.data) }
func (s StringView) String() string { return string(s.data) }
func (s StringView) Bytes() []byte  { return s.data }

func (s StringView) Equal(o StringView) bool {
	return string(s.data) == string(o.data)
}

func (s StringView) Compare(o StringView) int {
	return strings.Compare(string(s.data), string(o.data))
}

func (s StringView) Contains(substr string) bool {
	return strings.Contains(string(s.data), substr)
}

func (s StringView) StartsWith(prefix string) bool {
	return strings.HasPrefix(string(s.data), prefix)
}

func (s StringView) Like(pattern string) bool {
	return sqlLike(string(s.data), pattern)
}

// sqlLike implements the SQL LIKE pattern language (% = any run, _ = any
// single char) via a classic dynamic-programming match, since Go's
// regexp package doesn't speak SQL wildcard syntax directly.
func sqlLike(s, pattern string) bool {
	sr, pr := []rune(s), []rune(pattern)
	dp := make([][]bool, len(sr)+1)
	for i := range dp {
		dp[i] = make([]bool, len(pr)+1)
	}
	dp[0][0] = true
	for j := 1; j <= len(pr); j++ {
		if pr[j-1] == '%' {
			dp[0][j] = dp[0][j-1]
		}
	}
	for i := 1; i <= len(sr); i++ {
		for j := 1; j <= len(pr); j++ {
			switch pr[j-1] {
			case '%':
				dp[i][j] = dp[i-1][j] || dp[i][j-1]
			case '_':
				dp[i][j] = dp[i-1][j-1]
			default:
				dp[i][j] = dp[i-1][j-1] && sr[i-1] == pr[j-1]
			}
		}
	}
	return dp[len(sr)][len(pr)]
}

// HashBytes is an FNV-1a hash over b, chosen for being allocation-free
// and matching the "cheap,
// well-distributed, no cryptographic requirement" hash the original's
// hash table uses internally.
func HashBytes(b []byte) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}
