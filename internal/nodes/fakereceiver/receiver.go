/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package fakereceiver implements spec.md §4.2's "fake-data generator"
// receiver category: a synthetic source driven by pkg/datagen, useful
// for load-testing a pipeline without standing up a real OTLP client.
package fakereceiver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptraceotlp"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/otap"
	"github.com/otap-dataflow/dataflow-go/pkg/datagen"
	otelarrow "github.com/otap-dataflow/dataflow-go/pkg/otel/common/arrow"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// URN is the factory key this package registers under.
const URN = "fake_receiver"

// Config is the node's user_config JSON shape.
type Config struct {
	Signal        graph.Signal `json:"-"`
	SignalName    string       `json:"signal"`
	BatchSize     int          `json:"batch_size"`
	IntervalMS    int          `json:"interval_ms"`
	MemoryLimitMB int          `json:"memory_limit_mb"`
}

func (c *Config) interval() time.Duration {
	if c.IntervalMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

func (c *Config) batchSize() int {
	if c.BatchSize <= 0 {
		return 10
	}
	return c.BatchSize
}

func parseConfig(raw []byte) (*Config, error) {
	var c Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, werror.Wrap(err)
		}
	}
	switch c.SignalName {
	case "", "logs":
		c.Signal = graph.SignalLogs
	case "metrics":
		c.Signal = graph.SignalMetrics
	case "traces":
		c.Signal = graph.SignalTraces
	default:
		return nil, fmt.Errorf("fakereceiver: unknown signal %q", c.SignalName)
	}
	return &c, nil
}

// Receiver emits synthetic OTAP batches on a fixed interval, entirely
// driven by its own ticker rather than the core's shared TimerTick, so
// its cadence is independent of the 100ms timer wheel.
type Receiver struct {
	unique graph.NodeUnique
	cfg    *Config
	mem    memory.Allocator
	nextID uint64

	entropy    datagen.TestEntropy
	logsGen    *datagen.LogsGenerator
	tracesGen  *datagen.TraceGenerator
	metricsGen *datagen.MetricsGenerator
}

// New is the node.Factory for URN.
func New(unique graph.NodeUnique, userConfig []byte, _ node.CoreContext) (any, error) {
	cfg, err := parseConfig(userConfig)
	if err != nil {
		return nil, err
	}
	entropy := datagen.NewTestEntropy()
	resourceAttrs := entropy.NewStandardResourceAttributes()
	scopes := entropy.NewStandardInstrumentationScopes()

	r := &Receiver{
		unique:     unique,
		cfg:        cfg,
		mem:        allocatorFor(cfg),
		entropy:    entropy,
		logsGen:    datagen.NewLogsGenerator(entropy, resourceAttrs, scopes),
		tracesGen:  datagen.NewTracesGenerator(entropy, resourceAttrs, scopes),
		metricsGen: datagen.NewMetricsGenerator(entropy, resourceAttrs, scopes),
	}
	return r, nil
}

// allocatorFor returns a plain Arrow allocator, or one capped at
// cfg.MemoryLimitMB when the user sets it: without a limit, a
// misconfigured batch size could let one receiver grow its Arrow
// buffers without bound.
func allocatorFor(cfg *Config) memory.Allocator {
	base := memory.NewGoAllocator()
	if cfg.MemoryLimitMB <= 0 {
		return base
	}
	return otelarrow.NewLimitedAllocator(base, cfg.MemoryLimitMB<<20)
}

var _ node.Receiver = (*Receiver)(nil)

// Start produces one batch per interval tick until Shutdown arrives on
// control, or ctx is cancelled.
func (r *Receiver) Start(ctx context.Context, control <-chan node.Control, eh node.EffectHandler) error {
	ticker := time.NewTicker(r.cfg.interval())
	defer ticker.Stop()

	metrics := eh.MetricSet("fake_receiver")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ctrl, ok := <-control:
			if !ok {
				return nil
			}
			if ctrl.Kind == node.ControlShutdown {
				return nil
			}
		case <-ticker.C:
			msg, err := r.generate()
			if err != nil {
				return werror.Wrap(err)
			}
			if err := eh.Emit(ctx, msg); err != nil {
				return werror.Wrap(err)
			}
			metrics.Inc("batches_emitted", 1)
		}
	}
}

// generate builds one synthetic batch. A LimitedAllocator's panic on
// memory-limit overrun is recovered here and turned into a plain
// error; any other panic is a real bug and propagates.
func (r *Receiver) generate() (msg node.Message, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if le, ok := p.(otelarrow.LimitError); ok {
			err = werror.Wrap(le)
			return
		}
		panic(p)
	}()
	return r.generateUnguarded()
}

func (r *Receiver) generateUnguarded() (node.Message, error) {
	var (
		recs *otap.OtapArrowRecords
		err  error
	)

	switch r.cfg.Signal {
	case graph.SignalLogs:
		ld := r.logsGen.Generate(r.cfg.batchSize(), r.cfg.interval())
		req := plogotlp.NewExportRequestFromLogs(ld)
		data, merr := req.MarshalProto()
		if merr != nil {
			return node.Message{}, werror.Wrap(merr)
		}
		recs, err = otap.FromOTLPLogBytes(data, r.mem)

	case graph.SignalTraces:
		td := r.tracesGen.Generate(r.cfg.batchSize(), r.cfg.interval())
		req := ptraceotlp.NewExportRequestFromTraces(td)
		data, merr := req.MarshalProto()
		if merr != nil {
			return node.Message{}, werror.Wrap(merr)
		}
		recs, err = otap.FromOTLPTraceBytes(data, r.mem)

	case graph.SignalMetrics:
		md := r.metricsGen.GenerateAllKindOfMetrics(r.cfg.batchSize(), r.cfg.interval())
		req := pmetricotlp.NewExportRequestFromMetrics(md)
		data, merr := req.MarshalProto()
		if merr != nil {
			return node.Message{}, werror.Wrap(merr)
		}
		recs, _, err = otap.FromOTLPMetricBytes(data, r.mem)

	default:
		return node.Message{}, fmt.Errorf("fakereceiver: unsupported signal %v", r.cfg.Signal)
	}
	if err != nil {
		return node.Message{}, werror.Wrap(err)
	}

	id := atomic.AddUint64(&r.nextID, 1)
	return node.Message{
		ID:     node.MsgID(id),
		Source: r.unique.ID,
		Data: node.PData{
			Kind:    node.PDataKindOtapArrowRecords,
			Signal:  r.cfg.Signal,
			Records: recs,
		},
	}, nil
}
