/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package datagen

import (
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// TestEntropy is the random source shared by the generators in this
// package that are built from it. It is seeded from the wall clock, so
// output differs between runs; ids, names and bodies drawn through
// gofakeit come from gofakeit's own global source, not from it.
type TestEntropy struct {
	rng *rand.Rand
}

// NewTestEntropy returns an entropy source seeded from the wall clock.
func NewTestEntropy() TestEntropy {
	return TestEntropy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// GenBool flips a fair coin.
func (te TestEntropy) GenBool() bool {
	return te.rng.Intn(2) == 0
}

// DataGenerator holds the clock, id, and attribute-pool state shared
// by LogsGenerator, TraceGenerator, and MetricsGenerator; each embeds
// a *DataGenerator rather than duplicating this bookkeeping.
type DataGenerator struct {
	TestEntropy

	resourceAttributes    []pcommon.Map
	instrumentationScopes []pcommon.InstrumentationScope

	prevTime    pcommon.Timestamp
	currentTime pcommon.Timestamp
	id8Bits     pcommon.SpanID
	id16Bits    pcommon.TraceID
}

// NewDataGenerator builds a generator whose resource/scope pools are
// picked (by NewStandardResourceAttributes, NewRandomResourceAttributes,
// ...) by the caller and passed in, so every signal's batch shares one
// consistent resource/scope universe.
func NewDataGenerator(entropy TestEntropy, resourceAttributes []pcommon.Map, instrumentationScopes []pcommon.InstrumentationScope) *DataGenerator {
	dg := &DataGenerator{
		TestEntropy:           entropy,
		resourceAttributes:    resourceAttributes,
		instrumentationScopes: instrumentationScopes,
		currentTime:           pcommon.NewTimestampFromTime(time.Now()),
	}
	dg.prevTime = dg.currentTime
	dg.NextId8Bytes()
	dg.NextId16Bytes()
	return dg
}

func (dg *DataGenerator) PrevTime() pcommon.Timestamp    { return dg.prevTime }
func (dg *DataGenerator) CurrentTime() pcommon.Timestamp { return dg.currentTime }

// AdvanceTime moves the generator's clock forward by delta, keeping
// the previous value so start/end timestamps on the next record stay
// ordered.
func (dg *DataGenerator) AdvanceTime(delta time.Duration) {
	dg.prevTime = dg.currentTime
	dg.currentTime = pcommon.Timestamp(uint64(dg.currentTime) + uint64(delta))
}

// NextId8Bytes draws a fresh 8-byte span id.
func (dg *DataGenerator) NextId8Bytes() {
	var id pcommon.SpanID
	copy(id[:], []byte(gofakeit.DigitN(8)))
	dg.id8Bits = id
}

// NextId16Bytes draws a fresh 16-byte trace id.
func (dg *DataGenerator) NextId16Bytes() {
	var id pcommon.TraceID
	copy(id[:], []byte(gofakeit.DigitN(16)))
	dg.id16Bits = id
}

func (dg *DataGenerator) Id8Bytes() pcommon.SpanID   { return dg.id8Bits }
func (dg *DataGenerator) Id16Bytes() pcommon.TraceID { return dg.id16Bits }

// GenId returns n random decimal-digit bytes, used for attribute
// payloads that want opaque-looking but deterministic-length ids.
func (dg *DataGenerator) GenId(n uint) []byte {
	return []byte(gofakeit.DigitN(n))
}

func (dg *DataGenerator) GenF64Range(min, max float64) float64 {
	return min + dg.rng.Float64()*(max-min)
}

func (dg *DataGenerator) GenI64Range(min, max int64) int64 {
	return min + int64(dg.rng.Float64()*float64(max-min))
}

// HasMetricDescription/HasMetricUnit/HasHistogram* are named coin
// flips used throughout metrics.go so each omission reads as
// intentional at the call site instead of a bare GenBool().
func (dg *DataGenerator) HasMetricDescription() bool { return dg.GenBool() }
func (dg *DataGenerator) HasMetricUnit() bool        { return dg.GenBool() }
func (dg *DataGenerator) HasHistogramSum() bool      { return dg.GenBool() }
func (dg *DataGenerator) HasHistogramMin() bool      { return dg.GenBool() }
func (dg *DataGenerator) HasHistogramMax() bool      { return dg.GenBool() }
