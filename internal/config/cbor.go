/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package config

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// EncodeControlConfig CBOR-encodes a PipelineConfig into the byte form
// a node.Control.ConfigRaw payload carries. The engine itself never
// publishes ControlConfig messages, so nothing in this module calls it
// on the control path.
func EncodeControlConfig(pc PipelineConfig) ([]byte, error) {
	data, err := cbor.Marshal(pc)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	return data, nil
}

// DecodeControlConfig reverses EncodeControlConfig.
func DecodeControlConfig(data []byte) (PipelineConfig, error) {
	var pc PipelineConfig
	if err := cbor.Unmarshal(data, &pc); err != nil {
		return PipelineConfig{}, werror.Wrap(err)
	}
	return pc, nil
}
