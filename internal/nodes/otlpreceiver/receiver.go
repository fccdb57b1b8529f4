/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package otlpreceiver implements the OTLP/gRPC receiver category of
// spec.md §4.2: a standard collector.pdata export-request server,
// translating every accepted request into an OTAP batch and handing
// it to the node's out-port.
package otlpreceiver

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptraceotlp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/logging"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/nodes/transport"
	"github.com/otap-dataflow/dataflow-go/internal/otap"
	"github.com/otap-dataflow/dataflow-go/internal/pdataviews"
	otelarrow "github.com/otap-dataflow/dataflow-go/pkg/otel/common/arrow"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

func init() {
	transport.RegisterGRPCCompressors()
}

// URN is the factory key this package registers under.
const URN = "otlp_grpc_receiver"

// Config is the node's user_config JSON shape.
type Config struct {
	Endpoint      string `json:"endpoint"`
	Signal        string `json:"signal"`
	MemoryLimitMB int    `json:"memory_limit_mb"`
}

func parseConfig(raw []byte) (Config, error) {
	cfg := Config{Endpoint: "127.0.0.1:4317", Signal: "logs"}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, werror.Wrap(err)
		}
	}
	return cfg, nil
}

// Receiver hosts an OTLP/gRPC server on Endpoint, accepting whichever
// of the three export services matches Signal.
type Receiver struct {
	unique graph.NodeUnique
	cfg    Config
	mem    memory.Allocator
	log    *logging.Logger
	nextID uint64

	srv *grpc.Server
}

// New is the node.Factory for URN.
func New(unique graph.NodeUnique, userConfig []byte, cc node.CoreContext) (any, error) {
	cfg, err := parseConfig(userConfig)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		unique: unique,
		cfg:    cfg,
		mem:    allocatorFor(cfg),
		log:    logging.For("otlp_receiver", "-", string(unique.ID)),
	}, nil
}

// allocatorFor returns a plain Arrow allocator, or one capped at
// cfg.MemoryLimitMB when the operator sets it, so one misbehaving
// client can't let the receiver's Arrow buffers grow unbounded.
func allocatorFor(cfg Config) memory.Allocator {
	base := memory.NewGoAllocator()
	if cfg.MemoryLimitMB <= 0 {
		return base
	}
	return otelarrow.NewLimitedAllocator(base, cfg.MemoryLimitMB<<20)
}

var _ node.Receiver = (*Receiver)(nil)

// Start binds Endpoint and serves until Shutdown or ctx cancellation.
func (r *Receiver) Start(ctx context.Context, control <-chan node.Control, eh node.EffectHandler) error {
	lis, err := net.Listen("tcp", r.cfg.Endpoint)
	if err != nil {
		return werror.WrapWithContext(err, map[string]interface{}{"endpoint": r.cfg.Endpoint})
	}

	r.srv = grpc.NewServer()
	switch r.cfg.Signal {
	case "", "logs":
		plogotlp.RegisterGRPCServer(r.srv, &logsService{r: r, eh: eh})
	case "traces":
		ptraceotlp.RegisterGRPCServer(r.srv, &tracesService{r: r, eh: eh})
	case "metrics":
		pmetricotlp.RegisterGRPCServer(r.srv, &metricsService{r: r, eh: eh})
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- r.srv.Serve(lis) }()

	for {
		select {
		case <-ctx.Done():
			r.srv.GracefulStop()
			return nil
		case err := <-serveErr:
			if err != nil {
				return werror.Wrap(err)
			}
			return nil
		case ctrl, ok := <-control:
			if !ok {
				r.srv.GracefulStop()
				return nil
			}
			if ctrl.Kind == node.ControlShutdown {
				r.srv.GracefulStop()
				return nil
			}
		}
	}
}

// decodeLimitStatus turns a LimitedAllocator panic into a
// ResourceExhausted gRPC status instead of crashing the node: a client
// sending one oversized batch shouldn't take the whole receiver down.
func decodeLimitStatus(fn func() error) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if le, ok := p.(otelarrow.LimitError); ok {
			err = status.Error(codes.ResourceExhausted, le.Error())
			return
		}
		panic(p)
	}()
	return fn()
}

func (r *Receiver) emit(ctx context.Context, eh node.EffectHandler, signal graph.Signal, recs *otap.OtapArrowRecords) error {
	id := atomic.AddUint64(&r.nextID, 1)
	msg := node.Message{
		ID:     node.MsgID(id),
		Source: r.unique.ID,
		Data: node.PData{
			Kind:    node.PDataKindOtapArrowRecords,
			Signal:  signal,
			Records: recs,
		},
	}
	return eh.Emit(ctx, msg)
}

type logsService struct {
	plogotlp.UnimplementedGRPCServer
	r  *Receiver
	eh node.EffectHandler
}

func (s *logsService) Export(ctx context.Context, req plogotlp.ExportRequest) (plogotlp.ExportResponse, error) {
	data, err := req.MarshalProto()
	if err != nil {
		return plogotlp.NewExportResponse(), status.Error(codes.InvalidArgument, err.Error())
	}
	if n, err := pdataviews.PeekResourceCount(data); err == nil {
		s.eh.MetricSet("otlpreceiver").Set("last_request_resource_count", int64(n))
	}
	var recs *otap.OtapArrowRecords
	if err := decodeLimitStatus(func() error {
		var derr error
		recs, derr = otap.FromOTLPLogBytes(data, s.r.mem)
		return derr
	}); err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return plogotlp.NewExportResponse(), err
		}
		return plogotlp.NewExportResponse(), status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.r.emit(ctx, s.eh, graph.SignalLogs, recs); err != nil {
		return plogotlp.NewExportResponse(), status.Error(codes.Unavailable, err.Error())
	}
	return plogotlp.NewExportResponse(), nil
}

type tracesService struct {
	ptraceotlp.UnimplementedGRPCServer
	r  *Receiver
	eh node.EffectHandler
}

func (s *tracesService) Export(ctx context.Context, req ptraceotlp.ExportRequest) (ptraceotlp.ExportResponse, error) {
	data, err := req.MarshalProto()
	if err != nil {
		return ptraceotlp.NewExportResponse(), status.Error(codes.InvalidArgument, err.Error())
	}
	if n, err := pdataviews.PeekResourceCount(data); err == nil {
		s.eh.MetricSet("otlpreceiver").Set("last_request_resource_count", int64(n))
	}
	var recs *otap.OtapArrowRecords
	if err := decodeLimitStatus(func() error {
		var derr error
		recs, derr = otap.FromOTLPTraceBytes(data, s.r.mem)
		return derr
	}); err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return ptraceotlp.NewExportResponse(), err
		}
		return ptraceotlp.NewExportResponse(), status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.r.emit(ctx, s.eh, graph.SignalTraces, recs); err != nil {
		return ptraceotlp.NewExportResponse(), status.Error(codes.Unavailable, err.Error())
	}
	return ptraceotlp.NewExportResponse(), nil
}

type metricsService struct {
	pmetricotlp.UnimplementedGRPCServer
	r  *Receiver
	eh node.EffectHandler
}

func (s *metricsService) Export(ctx context.Context, req pmetricotlp.ExportRequest) (pmetricotlp.ExportResponse, error) {
	data, err := req.MarshalProto()
	if err != nil {
		return pmetricotlp.NewExportResponse(), status.Error(codes.InvalidArgument, err.Error())
	}
	if n, err := pdataviews.PeekResourceCount(data); err == nil {
		s.eh.MetricSet("otlpreceiver").Set("last_request_resource_count", int64(n))
	}
	var recs *otap.OtapArrowRecords
	if err := decodeLimitStatus(func() error {
		var derr error
		recs, _, derr = otap.FromOTLPMetricBytes(data, s.r.mem)
		return derr
	}); err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return pmetricotlp.NewExportResponse(), err
		}
		return pmetricotlp.NewExportResponse(), status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.r.emit(ctx, s.eh, graph.SignalMetrics, recs); err != nil {
		return pmetricotlp.NewExportResponse(), status.Error(codes.Unavailable, err.Error())
	}
	return pmetricotlp.NewExportResponse(), nil
}
