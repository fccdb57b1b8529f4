/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package controller implements C6: it takes a validated configuration
// document and a core quota, compiles each pipeline into one
// RuntimePipeline per core (spec.md §4.5: "each core...owns its share
// of each pipeline" — here, a full replica of the pipeline's topology,
// so every core runs its own receivers/processors/exporters
// independently and in parallel, the thread-per-core design's whole
// point), spawns the per-core workers, and supervises shutdown.
package controller

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/config"
	"github.com/otap-dataflow/dataflow-go/internal/engine"
	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/logging"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// metricsChanCapacity bounds the shared collector channel every core's
// Reporter sends snapshots on.
const metricsChanCapacity = 256

// Quota bounds how many cores the controller spawns; NumCores == 0
// means "all available" (runtime.NumCPU()).
type Quota struct {
	NumCores int
}

// resolve returns the concrete core count this quota implies.
func (q Quota) resolve() int {
	if q.NumCores > 0 {
		return q.NumCores
	}
	return runtime.NumCPU()
}

// Controller owns every core worker and the shared observed-state
// store; it is the one place a config document, the node registry, and
// the core quota come together.
type Controller struct {
	registry *node.Registry
	observed *observedstate.Store
	log      *logging.Logger

	cores   []*engine.Core
	cancel  context.CancelFunc
	runWg   sync.WaitGroup
	storeWg sync.WaitGroup

	metricsMu sync.RWMutex
	metrics   map[string]telemetry.Snapshot
	metricsWg sync.WaitGroup
}

// New constructs a Controller. reg must already have every URN the
// configuration document references registered.
func New(reg *node.Registry, observed *observedstate.Store) *Controller {
	return &Controller{
		registry: reg,
		observed: observed,
		log:      logging.For("controller", "-", "-"),
	}
}

// Start validates and compiles doc into per-core RuntimePipelines,
// spawns one worker goroutine per core, and returns once every node on
// every core has begun starting. Start never partially starts: the
// first ConfigInvalid (graph validation, unknown URN) aborts before any
// core is spawned, per spec.md §7's ConfigInvalid contract.
func (c *Controller) Start(ctx context.Context, doc *config.Document, quota Quota) error {
	type compiledPipeline struct {
		key graph.PipelineKey
		g   *graph.Graph
	}

	var pipelines []compiledPipeline
	for tenantID, tenant := range doc.Tenants {
		for pipelineID, pc := range tenant.Pipelines {
			g, err := config.BuildGraph(pc)
			if err != nil {
				return werror.WrapWithContext(err, map[string]interface{}{
					"tenant": tenantID, "pipeline": pipelineID,
				})
			}
			pipelines = append(pipelines, compiledPipeline{
				key: config.PipelineKeyFor(tenantID, pipelineID),
				g:   g,
			})
		}
	}
	if len(pipelines) == 0 {
		return fmt.Errorf("controller: configuration document has no pipelines")
	}

	numCores := quota.resolve()
	if numCores <= 0 {
		numCores = 1
	}

	storeCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.storeWg.Add(1)
	go func() {
		defer c.storeWg.Done()
		c.observed.Run(storeCtx)
	}()

	metricsCh := make(chan telemetry.Snapshot, metricsChanCapacity)
	reporter := telemetry.NewReporter(metricsCh)
	c.metrics = make(map[string]telemetry.Snapshot)
	c.metricsWg.Add(1)
	go func() {
		defer c.metricsWg.Done()
		for {
			select {
			case snap := <-metricsCh:
				c.metricsMu.Lock()
				c.metrics[snap.NodeName] = snap
				c.metricsMu.Unlock()
			case <-storeCtx.Done():
				return
			}
		}
	}()

	c.cores = make([]*engine.Core, numCores)
	for i := 0; i < numCores; i++ {
		core := engine.NewCore(observedstate.CoreID(i), c.observed)
		core.SetReporter(reporter)
		cc := node.CoreContext{CoreID: i, Clock: time.Now}

		for _, cp := range pipelines {
			rp, err := engine.Compile(cp.key, cp.g, c.registry, cc, engine.DefaultChannelCapacity)
			if err != nil {
				cancel()
				return werror.WrapWithContext(err, map[string]interface{}{
					"core": i, "pipeline": cp.key.String(),
				})
			}
			core.AddPipeline(rp)
		}
		c.cores[i] = core
	}

	for _, core := range c.cores {
		core := core
		c.runWg.Add(1)
		go func() {
			defer c.runWg.Done()
			core.Run(storeCtx)
		}()
	}

	c.log.Infof("started %d core(s) running %d pipeline(s)", numCores, len(pipelines))
	return nil
}

// Shutdown broadcasts Shutdown{deadline} to every core and blocks until
// they finish draining (or the deadline, whichever comes first), per
// spec.md §4.5's four-step shutdown protocol.
func (c *Controller) Shutdown(ctx context.Context, deadline time.Time) {
	var wg sync.WaitGroup
	for _, core := range c.cores {
		core := core
		wg.Add(1)
		go func() {
			defer wg.Done()
			core.Shutdown(ctx, deadline)
		}()
	}
	wg.Wait()

	if c.cancel != nil {
		c.cancel()
	}
	c.runWg.Wait()
	c.storeWg.Wait()
	c.metricsWg.Wait()
}

// Metrics returns the most recently collected snapshot for every
// "nodeID/setName" metric set across every core, per §5's metrics
// reporter channel. Nil/empty before Start, or for a set that has
// never reported a non-zero value.
func (c *Controller) Metrics() map[string]telemetry.Snapshot {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	out := make(map[string]telemetry.Snapshot, len(c.metrics))
	for k, v := range c.metrics {
		out[k] = v
	}
	return out
}

// Status returns the current aggregated status of every pipeline, read
// straight from the observed-state store (C7).
func (c *Controller) Status() map[graph.PipelineKey]observedstate.PipelineStatus {
	return c.observed.Snapshot()
}

// StatusOne returns a single pipeline's status and whether it is known
// at all, for the admin surface's per-pipeline lookup (§6).
func (c *Controller) StatusOne(key graph.PipelineKey) (observedstate.PipelineStatus, bool) {
	return c.observed.StatusOne(key)
}

// Ready reports whether every pipeline the controller knows about is
// Running on every core — the fuller contract SPEC_FULL.md §C adopts
// from original_source's admin/pipeline.rs: Degraded counts as not
// ready, same as Starting/Stopping.
func (c *Controller) Ready() bool {
	for _, status := range c.Status() {
		if status.Phase != node.PhaseRunning {
			return false
		}
	}
	return true
}
