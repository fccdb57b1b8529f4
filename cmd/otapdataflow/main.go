/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Command otapdataflow starts the OTAP dataflow engine: it loads a
// pipeline configuration document, spawns one core worker per CPU (or
// --num-cores), and serves the admin health/status surface until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/otap-dataflow/dataflow-go/internal/admin"
	"github.com/otap-dataflow/dataflow-go/internal/config"
	"github.com/otap-dataflow/dataflow-go/internal/controller"
	"github.com/otap-dataflow/dataflow-go/internal/logging"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/nodes"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
)

var (
	pipelinePath = ""
	numCores     = 0
	logLevel     = "info"
	adminAddr    = "127.0.0.1:13133"
	shutdownMS   = 10_000
)

func main() {
	flag.StringVar(&pipelinePath, "pipeline", pipelinePath, "path to the pipeline configuration document (YAML or JSON)")
	flag.IntVar(&numCores, "num-cores", numCores, "number of core workers to spawn (0 = runtime.NumCPU())")
	flag.StringVar(&logLevel, "log-level", logLevel, "minimum log level: debug, info, warn, error")
	flag.StringVar(&adminAddr, "admin-addr", adminAddr, "address for the /status, /livez, /readyz admin HTTP server")
	flag.IntVar(&shutdownMS, "shutdown-timeout-ms", shutdownMS, "how long to wait for pipelines to drain on shutdown")
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "otapdataflow:", err)
		os.Exit(1)
	}
}

func run() error {
	if pipelinePath == "" {
		return fmt.Errorf("--pipeline is required")
	}
	logging.SetLevel(logging.ParseLevel(logLevel))
	log := logging.For("main", "-", "-")

	data, err := os.ReadFile(pipelinePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", pipelinePath, err)
	}
	doc, err := config.Load(pipelinePath, data)
	if err != nil {
		return fmt.Errorf("loading %s: %w", pipelinePath, err)
	}

	reg := node.NewRegistry()
	nodes.Register(reg)

	store := observedstate.NewStore(0, 0, 0)
	ctrl := controller.New(reg, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx, doc, controller.Quota{NumCores: numCores}); err != nil {
		return fmt.Errorf("starting pipelines: %w", err)
	}

	printBanner(doc, numCores)

	adminSrv := &http.Server{Addr: adminAddr, Handler: admin.New(ctrl)}
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("admin server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("shutdown signal received, draining pipelines")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownMS)*time.Millisecond)
	defer cancel()
	_ = adminSrv.Shutdown(shutdownCtx)
	ctrl.Shutdown(shutdownCtx, time.Now().Add(time.Duration(shutdownMS)*time.Millisecond))

	log.Infof("shutdown complete")
	return nil
}

// printBanner prints the requested core count and every configured
// tenant/pipeline as a startup table, the way the teacher's
// tools/trace_analyzer prints its summary tables.
func printBanner(doc *config.Document, requestedCores int) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Tenant", "Pipeline", "Type", "Nodes")
	for tenantID, tenant := range doc.Tenants {
		for pipelineID, pc := range tenant.Pipelines {
			table.Append(tenantID, pipelineID, string(pc.Type), fmt.Sprintf("%d", len(pc.Nodes)))
		}
	}
	table.Render()
	fmt.Printf("cores: %d (0 = runtime.NumCPU())\n\n", requestedCores)
}
