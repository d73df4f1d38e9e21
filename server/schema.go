package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// inboundSchemaJSON 客户端文本帧的结构约束，每种 type 一个分支
const inboundSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "oneOf": [
    {
      "properties": {
        "type": {"const": "spawn"},
        "skin": {"type": "string", "minLength": 1, "maxLength": 32},
        "seq":  {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    },
    {
      "properties": {
        "type":  {"const": "dir"},
        "x":     {"type": "number"},
        "y":     {"type": "number"},
        "boost": {"type": "boolean"},
        "seq":   {"type": "integer", "minimum": 0}
      },
      "required": ["x", "y"],
      "additionalProperties": false
    },
    {
      "properties": {
        "type":   {"const": "eat"},
        "foodId": {"type": "integer", "minimum": 1},
        "seq":    {"type": "integer", "minimum": 0}
      },
      "required": ["foodId"],
      "additionalProperties": false
    },
    {
      "properties": {
        "type":     {"const": "kill"},
        "victimId": {"type": "integer", "minimum": 1},
        "seq":      {"type": "integer", "minimum": 0}
      },
      "required": ["victimId"],
      "additionalProperties": false
    },
    {
      "properties": {
        "type": {"const": "leave"},
        "seq":  {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    }
  ]
}`

var (
	inboundOnce   sync.Once
	inboundSchema *jsonschema.Schema
	inboundErr    error
)

func compiledInbound() (*jsonschema.Schema, error) {
	inboundOnce.Do(func() {
		inboundSchema, inboundErr = jsonschema.CompileString("inbound.schema.json", inboundSchemaJSON)
	})
	return inboundSchema, inboundErr
}

// DecodeInbound 先做 schema 校验再解码为 InputMessage
func DecodeInbound(payload []byte) (InputMessage, error) {
	var im InputMessage
	sch, err := compiledInbound()
	if err != nil {
		return im, fmt.Errorf("compile inbound schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return im, fmt.Errorf("decode inbound: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return im, fmt.Errorf("validate inbound: %w", err)
	}
	if err := json.Unmarshal(payload, &im); err != nil {
		return im, fmt.Errorf("decode inbound: %w", err)
	}
	return im, nil
}
