/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package node defines the Receiver/Processor/Exporter contracts, the
// control and data message shapes they exchange, and the per-node
// lifecycle state machine observed by the observed-state store.
package node

import (
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/otap"
)

// MsgID uniquely identifies a PData message on its originating core.
type MsgID uint64

// ErrorKind classifies a failure for NACK/retry routing purposes.
type ErrorKind int

const (
	ErrorKindTransient ErrorKind = iota
	ErrorKindPermanent
	ErrorKindTimeout
	ErrorKindDecode
	ErrorKindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransient:
		return "Transient"
	case ErrorKindPermanent:
		return "Permanent"
	case ErrorKindTimeout:
		return "Timeout"
	case ErrorKindDecode:
		return "Decode"
	case ErrorKindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// PDataKind distinguishes which variant of PData a Message carries.
type PDataKind int

const (
	PDataKindOtlpProtoBytes PDataKind = iota
	PDataKindOtapArrowRecords
)

// PData is the data-plane payload: either raw OTLP proto bytes still
// to be transcoded, or an already-decoded OTAP batch.
type PData struct {
	Kind    PDataKind
	Signal  graph.Signal
	Proto   []byte
	Records *otap.OtapArrowRecords
}

// Message wraps a PData with routing and retry metadata.
type Message struct {
	ID         MsgID
	Source     graph.NodeId
	Data       PData
	Deadline   time.Time // zero value means no deadline
	ReplyCount int       // retry attempts consumed so far
}

// Ack/Nack/TimerTick/Config/Start/Shutdown are the control-plane
// message variants broadcast on a core's Control channel.
type ControlKind int

const (
	ControlStart ControlKind = iota
	ControlConfig
	ControlTimerTick
	ControlAck
	ControlNack
	ControlShutdown
)

type Control struct {
	Kind      ControlKind
	ConfigRaw []byte    // ControlConfig
	Epoch     uint64    // ControlTimerTick
	Now       time.Time // ControlTimerTick
	AckID     MsgID     // ControlAck / ControlNack
	NackKind  ErrorKind // ControlNack
	Permanent bool      // ControlNack
	Deadline  time.Time // ControlShutdown; zero means no deadline
}
