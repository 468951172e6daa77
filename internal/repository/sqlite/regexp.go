package sqlite

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"
	"unicode"

	moderncsqlite "modernc.org/sqlite"
)

// maxCachedPatterns bounds patternCache; patterns come straight from users.
const maxCachedPatterns = 256

// patternCache keeps compiled patterns. A search evaluates the same pattern
// against every row, so compiling once per query string matters.
var patternCache = struct {
	sync.Mutex
	m map[string]*regexp.Regexp
}{m: make(map[string]*regexp.Regexp)}

// regexpFunc implements `value REGEXP pattern`. SQLite rewrites that operator
// to the call regexp(pattern, value).
//
// Matching is case-insensitive and the pattern is used as-is: special
// characters are regex syntax, not literals. A NULL on either side is "no match".
func regexpFunc(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := textArg(args[0])
	if !ok {
		return int64(0), nil
	}
	value, ok := textArg(args[1])
	if !ok {
		return int64(0), nil
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternCache.Lock()
	defer patternCache.Unlock()

	if re, ok := patternCache.m[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}
	if len(patternCache.m) >= maxCachedPatterns {
		clear(patternCache.m)
	}
	patternCache.m[pattern] = re
	return re, nil
}

func textArg(v driver.Value) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
