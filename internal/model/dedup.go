package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DedupKey derives the stable identity of a posting. API and feed sources
// carry a source-native ID and get a `src:` key scoped to the source.
// Scraped postings have no native ID and fall back to a normalized hash of
// title, company and location.
//
// This is the single correctness boundary that decides new-vs-update; keep
// it pure and free of I/O.
func DedupKey(sourceID, nativeID, title, company, location string) string {
	if nativeID != "" {
		return "src:" + sourceID + ":" + nativeID
	}
	h := sha256.Sum256([]byte(NormalizeForKey(title) + "|" + NormalizeForKey(company) + "|" + NormalizeForKey(location)))
	return "hash:" + hex.EncodeToString(h[:])[:16]
}

// PostingDedupKey derives the dedup key for a fetched posting.
func PostingDedupKey(sourceID string, p Posting) string {
	return DedupKey(sourceID, p.NativeID, p.Title, p.Company, p.Location)
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeForKey canonicalizes free text for hashing: accents folded,
// lowercased, punctuation dropped, whitespace collapsed to single spaces.
// "Señor  Gopher, Inc." and "senor gopher inc" hash identically.
func NormalizeForKey(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
