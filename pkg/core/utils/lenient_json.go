// Package utils holds the text helpers shared by the narration pipeline and
// the CLI: lenient JSON decoding and markdown rendering.
package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrUnparseable is returned by SmartParse when no strategy yields a value
// that decodes into the target.
var ErrUnparseable = errors.New("no parsing strategy produced valid JSON")

// RepairJSON fixes the usual defects of model output: single quotes, bare
// keys, trailing commas, unclosed brackets and code fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(stripFence(malformed))
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// HJSONToJSON converts Hjson (comments, unquoted keys, optional commas) to
// standard JSON.
func HJSONToJSON(data []byte) ([]byte, error) {
	var tree interface{}
	if err := hjson.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("hjson re-encode failed: %w", err)
	}
	return out, nil
}

// DecodeHJSON decodes Hjson into v through encoding/json, so json struct
// tags and custom unmarshalers apply. Unknown fields are rejected.
func DecodeHJSON(data []byte, v interface{}) error {
	raw, err := HJSONToJSON(data)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// hjsonMarker matches a line opening with a bare key or a comment. Quoted
// JSON never does.
var hjsonMarker = regexp.MustCompile(`(?m)^\s*(#|//|[A-Za-z_][\w-]*\s*:)`)

// SmartParse decodes input into v trying, in order, plain JSON, repaired
// JSON and Hjson. Input with bare keys or comments tries Hjson before
// repair. It returns the JSON text that decoded.
func SmartParse(input string, v interface{}) (string, error) {
	input = strings.TrimSpace(input)
	if err := json.Unmarshal([]byte(input), v); err == nil {
		return input, nil
	}

	if hjsonMarker.MatchString(stripFence(input)) {
		if converted, err := decodeHJSONInto(input, v); err == nil {
			return converted, nil
		}
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return repaired, nil
		}
	}

	if converted, err := decodeHJSONInto(input, v); err == nil {
		return converted, nil
	}

	return "", ErrUnparseable
}

func decodeHJSONInto(input string, v interface{}) (string, error) {
	converted, err := HJSONToJSON([]byte(stripFence(input)))
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(converted, v); err != nil {
		return "", err
	}
	return string(converted), nil
}

// stripFence removes one outer ``` block, with or without a language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}
