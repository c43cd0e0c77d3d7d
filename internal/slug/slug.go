// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives the URL path segment of posts, stories and products
// from their titles.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLen is the longest slug Generate will return.
const MaxLen = 75

var (
	// disallowed is anything that is not a letter, digit, space or hyphen.
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphens    = regexp.MustCompile(`-{2,}`)
)

// Generate lowercases s, folds accented letters to ASCII, drops other
// punctuation and joins words with single hyphens. Applying it to its own
// output returns the same slug.
//
//	"Hello, World! 2024" -> "hello-world-2024"
//	"Crème Brûlée Recipe" -> "creme-brulee-recipe"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(foldASCII(s)))
	result = disallowed.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = hyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return truncate(result, MaxLen)
}

// WithSuffix appends "-n" to base, shortening base so the result still
// fits in MaxLen.
func WithSuffix(base string, n int) string {
	suffix := "-" + strconv.Itoa(n)
	return truncate(base, MaxLen-len(suffix)) + suffix
}

// foldASCII decomposes s and keeps only its ASCII runes, so "é" becomes
// "e" and scripts without a Latin form vanish.
func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(s))
}

// truncate cuts s to at most n bytes and drops a trailing hyphen left by
// the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimRight(s[:n], "-")
}
