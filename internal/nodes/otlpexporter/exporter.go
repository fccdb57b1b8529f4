/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package otlpexporter implements the OTLP/gRPC exporter category of
// spec.md §4.2: translates an OTAP batch back to OTLP proto bytes and
// ships it to a fixed downstream endpoint. A failed call is returned
// as a plain error; it is not mapped to a node.ErrorKind.
package otlpexporter

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/collector/pdata/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptraceotlp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/nodes/transport"
	"github.com/otap-dataflow/dataflow-go/internal/otap"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

func init() {
	transport.RegisterGRPCCompressors()
}

// URN is the factory key this package registers under.
const URN = "otlp_grpc_exporter"

// Config is the node's user_config JSON shape.
type Config struct {
	Endpoint    string `json:"endpoint"`
	TimeoutMS   int    `json:"timeout_ms"`
	Compression string `json:"compression"`
}

// callOptions returns the grpc.CallOption for the configured
// compression codec, or none for "" / "identity".
func (c Config) callOptions() []grpc.CallOption {
	switch c.Compression {
	case "", "identity":
		return nil
	default:
		return []grpc.CallOption{grpc.UseCompressor(c.Compression)}
	}
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func parseConfig(raw []byte) (Config, error) {
	cfg := Config{Endpoint: "127.0.0.1:4317"}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, werror.Wrap(err)
		}
	}
	return cfg, nil
}

// Exporter dials Endpoint lazily on the first Export call and reuses
// the connection for the node's lifetime.
type Exporter struct {
	unique graph.NodeUnique
	cfg    Config

	conn         *grpc.ClientConn
	logsClient   plogotlp.GRPCClient
	tracesClient ptraceotlp.GRPCClient
	metricClient pmetricotlp.GRPCClient
}

// New is the node.Factory for URN.
func New(unique graph.NodeUnique, userConfig []byte, _ node.CoreContext) (any, error) {
	cfg, err := parseConfig(userConfig)
	if err != nil {
		return nil, err
	}
	return &Exporter{unique: unique, cfg: cfg}, nil
}

var _ node.Exporter = (*Exporter)(nil)

func (e *Exporter) ensureConn() error {
	if e.conn != nil {
		return nil
	}
	conn, err := grpc.NewClient(e.cfg.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return werror.WrapWithContext(err, map[string]interface{}{"endpoint": e.cfg.Endpoint})
	}
	e.conn = conn
	e.logsClient = plogotlp.NewGRPCClient(conn)
	e.tracesClient = ptraceotlp.NewGRPCClient(conn)
	e.metricClient = pmetricotlp.NewGRPCClient(conn)
	return nil
}

// Export translates msg's OTAP batch to OTLP and ships it. The engine
// NACKs every non-nil return as ErrorKindTransient, non-permanent;
// the gRPC status code does not select a Permanent NACK.
func (e *Exporter) Export(ctx context.Context, msg node.Message, eh node.EffectHandler) error {
	if err := e.ensureConn(); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.timeout())
	defer cancel()

	start := eh.Now()
	err := e.export(callCtx, msg)
	eh.MetricSet("otlp_exporter").Set("last_call_latency_us", time.Since(start).Microseconds())
	return err
}

func (e *Exporter) export(ctx context.Context, msg node.Message) error {
	recs := msg.Data.Records
	callOpts := e.cfg.callOptions()
	switch msg.Data.Signal {
	case graph.SignalLogs, graph.SignalOtapLogs:
		data, err := otap.ToOTLPLogBytes(recs)
		if err != nil {
			return werror.Wrap(err)
		}
		req := plogotlp.NewExportRequest()
		if err := req.UnmarshalProto(data); err != nil {
			return werror.Wrap(err)
		}
		_, err = e.logsClient.Export(ctx, req, callOpts...)
		return classifyErr(err)

	case graph.SignalTraces, graph.SignalOtapTraces:
		data, err := otap.ToOTLPTraceBytes(recs)
		if err != nil {
			return werror.Wrap(err)
		}
		req := ptraceotlp.NewExportRequest()
		if err := req.UnmarshalProto(data); err != nil {
			return werror.Wrap(err)
		}
		_, err = e.tracesClient.Export(ctx, req, callOpts...)
		return classifyErr(err)

	case graph.SignalMetrics, graph.SignalOtapMetrics:
		data, err := otap.ToOTLPMetricBytes(recs)
		if err != nil {
			return werror.Wrap(err)
		}
		req := pmetricotlp.NewExportRequest()
		if err := req.UnmarshalProto(data); err != nil {
			return werror.Wrap(err)
		}
		_, err = e.metricClient.Export(ctx, req, callOpts...)
		return classifyErr(err)

	default:
		return werror.Wrap(context.DeadlineExceeded)
	}
}

// classifyErr maps a status error carrying codes.OK to nil and returns
// every other error unchanged; codes.OK never appears as a non-nil
// error in practice, but it is handled so a caller can't mistake one
// for a real failure.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.OK {
		return nil
	}
	return err
}

// HandleControl implements node.Exporter; the exporter keeps no
// mutable batching state of its own, so TimerTick is a no-op and
// Shutdown just closes the connection.
func (e *Exporter) HandleControl(_ context.Context, ctrl node.Control, _ node.EffectHandler) error {
	if ctrl.Kind == node.ControlShutdown && e.conn != nil {
		return e.conn.Close()
	}
	return nil
}
