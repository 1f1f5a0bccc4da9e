package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceKindValid(t *testing.T) {
	assert.True(t, SourceKindAPI.Valid())
	assert.True(t, SourceKindFeed.Valid())
	assert.True(t, SourceKindScrape.Valid())
	assert.False(t, SourceKind("rss").Valid())
}

func TestSourceStatusValid(t *testing.T) {
	for _, s := range []SourceStatus{SourceStatusActive, SourceStatusPaused, SourceStatusFailing, SourceStatusDisabled} {
		assert.True(t, s.Valid())
	}
	assert.False(t, SourceStatus("dead").Valid())
}

func TestVerificationStatusValid(t *testing.T) {
	for _, v := range []VerificationStatus{VerificationUnverified, VerificationActive, VerificationStale, VerificationExpired} {
		assert.True(t, v.Valid())
	}
	assert.False(t, VerificationStatus("gone").Valid())
}

func TestSourceDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	src := JobSource{Status: SourceStatusActive}
	assert.True(t, src.Due(now), "never polled is always due")

	src.NextPollAt = &past
	assert.True(t, src.Due(now))

	src.NextPollAt = &future
	assert.False(t, src.Due(now))

	src.NextPollAt = &past
	src.Status = SourceStatusFailing
	assert.False(t, src.Due(now), "non-active sources are never due")
}

func TestEffectivePostedAt(t *testing.T) {
	seen := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	posted := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	j := Job{FirstSeenAt: seen}
	assert.Equal(t, seen, j.EffectivePostedAt())

	j.PostedAt = &posted
	assert.Equal(t, posted, j.EffectivePostedAt())
}
