package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edvin/serverdir/internal/model"
)

var confNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

const confGrace = time.Minute

func TestNextConfidence_FreshHistoryIsGreen(t *testing.T) {
	last := confNow.Add(-20 * time.Second)
	got := NextConfidence(model.ConfidenceGreen, true, &last, 5, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceGreen, got)
}

func TestNextConfidence_GapPastGraceIsYellow(t *testing.T) {
	last := confNow.Add(-90 * time.Second)
	got := NextConfidence(model.ConfidenceGreen, true, &last, 5, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceYellow, got)
}

func TestNextConfidence_FewSamplesIsYellow(t *testing.T) {
	last := confNow.Add(-10 * time.Second)
	got := NextConfidence(model.ConfidenceGreen, true, &last, 2, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceYellow, got)
}

func TestNextConfidence_GapAtTwiceGraceIsRed(t *testing.T) {
	last := confNow.Add(-2 * time.Minute)
	got := NextConfidence(model.ConfidenceYellow, true, &last, 5, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceRed, got)

	last = confNow.Add(-3 * time.Minute)
	got = NextConfidence(model.ConfidenceYellow, true, &last, 5, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceRed, got)
}

func TestNextConfidence_EmptyWindowIsRed(t *testing.T) {
	last := confNow.Add(-10 * time.Second)
	got := NextConfidence(model.ConfidenceGreen, true, &last, 0, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceRed, got)

	got = NextConfidence(model.ConfidenceGreen, true, nil, 0, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceRed, got)
}

func TestNextConfidence_RedNeverJumpsToGreen(t *testing.T) {
	last := confNow.Add(-5 * time.Second)

	got := NextConfidence(model.ConfidenceRed, true, &last, 10, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceYellow, got)

	// The following recompute from yellow may reach green.
	got = NextConfidence(got, true, &last, 10, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceGreen, got)
}

func TestNextConfidence_NeutralDefaultMayStartGreen(t *testing.T) {
	// A listing that has never been recomputed stores red as a neutral
	// default, not an earned deficit; its first recompute is unrestricted.
	last := confNow.Add(-5 * time.Second)
	got := NextConfidence(model.ConfidenceRed, false, &last, 10, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceGreen, got)
}

func TestNextConfidence_RedToYellowRecovery(t *testing.T) {
	last := confNow.Add(-100 * time.Second)
	got := NextConfidence(model.ConfidenceRed, true, &last, 5, 3, confGrace, confNow)
	assert.Equal(t, model.ConfidenceYellow, got)
}
