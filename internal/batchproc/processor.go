/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package batchproc implements C9: the batch processor, which groups
// incoming records per signal type until max_rows, max_bytes, or
// max_age (since the first queued record) triggers a flush. Grounded
// on spec.md §4.6.
package batchproc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/otap"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// URN is the factory key this package registers under.
const URN = "batch_processor"

// Config bounds one signal's group.
type Config struct {
	MaxRows  int
	MaxBytes int64
	MaxAge   time.Duration
}

// DefaultConfig matches common collector batch-processor defaults.
func DefaultConfig() Config {
	return Config{MaxRows: 8192, MaxBytes: 8 << 20, MaxAge: time.Second}
}

// jsonConfig is Config's user_config JSON shape; MaxAge arrives in
// milliseconds since config documents are plain JSON.
type jsonConfig struct {
	MaxRows  int   `json:"max_rows"`
	MaxBytes int64 `json:"max_bytes"`
	MaxAgeMS int64 `json:"max_age_ms"`
}

func parseConfig(raw []byte) (Config, error) {
	if len(raw) == 0 {
		return DefaultConfig(), nil
	}
	var jc jsonConfig
	if err := json.Unmarshal(raw, &jc); err != nil {
		return Config{}, werror.Wrap(err)
	}
	return Config{
		MaxRows:  jc.MaxRows,
		MaxBytes: jc.MaxBytes,
		MaxAge:   time.Duration(jc.MaxAgeMS) * time.Millisecond,
	}, nil
}

// New is the node.Factory for URN.
func New(_ graph.NodeUnique, userConfig []byte, _ node.CoreContext) (any, error) {
	cfg, err := parseConfig(userConfig)
	if err != nil {
		return nil, err
	}
	return NewProcessor(cfg), nil
}

var _ node.Processor = (*Processor)(nil)

type group struct {
	signal    graph.Signal
	batches   []*otap.OtapArrowRecords
	rows      int64
	bytes     int64
	firstSeen time.Time
	source    graph.NodeId
}

// Processor is the batch processor (C9): a node.Processor that
// accumulates OtapArrowRecords messages per signal and flushes a
// merged message downstream on whichever trigger fires first.
type Processor struct {
	cfg    Config
	groups map[graph.Signal]*group
}

// NewProcessor constructs a batch processor with cfg; a zero Config
// behaves like DefaultConfig.
func NewProcessor(cfg Config) *Processor {
	if cfg.MaxRows <= 0 && cfg.MaxBytes <= 0 && cfg.MaxAge <= 0 {
		cfg = DefaultConfig()
	}
	return &Processor{cfg: cfg, groups: make(map[graph.Signal]*group)}
}

// Process enqueues msg into its signal's group, flushing immediately
// if the enqueue itself crosses max_rows or max_bytes.
func (p *Processor) Process(ctx context.Context, msg node.Message, eh node.EffectHandler) error {
	metrics := eh.MetricSet("batchproc")
	if msg.Data.Kind != node.PDataKindOtapArrowRecords || msg.Data.Records == nil {
		metrics.Inc("dropped_empty_records", 1)
		return nil
	}
	rec := msg.Data.Records
	rows := totalRows(rec)
	if rows == 0 {
		metrics.Inc("dropped_empty_records", 1)
		return nil
	}
	metrics.Inc(signalCounter(msg.Data.Signal), rows)

	g, ok := p.groups[msg.Data.Signal]
	if !ok {
		g = &group{signal: msg.Data.Signal, firstSeen: eh.Now(), source: msg.Source}
		p.groups[msg.Data.Signal] = g
	}
	g.batches = append(g.batches, rec)
	g.rows += rows
	g.bytes += approxBytes(rec)

	if (p.cfg.MaxRows > 0 && g.rows >= int64(p.cfg.MaxRows)) ||
		(p.cfg.MaxBytes > 0 && g.bytes >= p.cfg.MaxBytes) {
		return p.flush(ctx, msg.Data.Signal, "flushes_size", eh)
	}
	return nil
}

// HandleControl flushes every non-empty group on TimerTick once its
// age exceeds max_age, and flushes everything unconditionally on
// Shutdown before reporting Stopped.
func (p *Processor) HandleControl(ctx context.Context, ctrl node.Control, eh node.EffectHandler) error {
	switch ctrl.Kind {
	case node.ControlTimerTick:
		for sig, g := range p.groups {
			if p.cfg.MaxAge > 0 && ctrl.Now.Sub(g.firstSeen) >= p.cfg.MaxAge {
				if err := p.flush(ctx, sig, "flushes_timer", eh); err != nil {
					return err
				}
			}
		}
	case node.ControlShutdown:
		for sig := range p.groups {
			if err := p.flush(ctx, sig, "flushes_size", eh); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) flush(ctx context.Context, sig graph.Signal, metric string, eh node.EffectHandler) error {
	g, ok := p.groups[sig]
	if !ok || len(g.batches) == 0 {
		return nil
	}
	merged, err := mergeBatches(sig, g.batches)
	if err != nil {
		return err
	}
	delete(p.groups, sig)

	eh.MetricSet("batchproc").Inc(metric, 1)
	return eh.Emit(ctx, node.Message{
		Source: g.source,
		Data: node.PData{
			Kind:    node.PDataKindOtapArrowRecords,
			Signal:  sig,
			Records: merged,
		},
	})
}

func totalRows(o *otap.OtapArrowRecords) int64 {
	var n int64
	for _, b := range o.Batches {
		if b.Record != nil {
			n += b.Record.NumRows()
		}
	}
	return n
}

// approxBytesPerRow is a rough per-row footprint used to approximate a
// bundle's wire size for the max_bytes trigger without walking every
// Arrow buffer in every payload-type batch on the hot path.
const approxBytesPerRow = 128

func approxBytes(o *otap.OtapArrowRecords) int64 {
	var rows int64
	for _, b := range o.Batches {
		if b.Record != nil {
			rows += b.Record.NumRows()
		}
	}
	return rows * approxBytesPerRow
}

func signalCounter(sig graph.Signal) string {
	switch sig {
	case graph.SignalOtapLogs, graph.SignalLogs:
		return "log_signals_received"
	case graph.SignalOtapMetrics, graph.SignalMetrics:
		return "metric_signals_received"
	default:
		return "trace_signals_received"
	}
}
