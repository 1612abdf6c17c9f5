package util

import "strings"

// MaskToken obscures a token string for logs and listings, showing only the
// first and last few characters.
func MaskToken(token string) string {
	if len(token) > 8 {
		return token[:4] + "..." + token[len(token)-4:]
	} else if len(token) > 4 {
		return token[:2] + "..." + token[len(token)-2:]
	} else if len(token) > 2 {
		return token[:1] + "..." + token[len(token)-1:]
	}
	return token
}

// MaskTokenKeepPrefix obscures the random suffix of a token string while
// keeping the prefix and credits segments readable.
func MaskTokenKeepPrefix(token string) string {
	idx := strings.LastIndex(token, "-")
	if idx <= 0 || idx == len(token)-1 {
		return MaskToken(token)
	}
	return token[:idx+1] + MaskToken(token[idx+1:])
}
