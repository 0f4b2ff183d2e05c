package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Policy names accepted in configuration.
const (
	PolicyReplace    = "replace"
	PolicyAppend     = "append"
	PolicyMergePatch = "merge-patch"
)

// ErrInvalidPatch is returned when a patch cannot be applied to the current snapshot.
var ErrInvalidPatch = errors.New("invalid patch")

// Merger owns the semantics of the shared-state blob.
// The hub never looks inside the blob; it only stores what Apply returns.
type Merger interface {
	// Initial returns the snapshot of a freshly created room.
	Initial() json.RawMessage
	// Apply folds patch into current and returns the new snapshot.
	Apply(current, patch json.RawMessage) (json.RawMessage, error)
}

// New returns the merger registered under policy.
// initial overrides the policy's default empty snapshot when non-empty.
func New(policy string, initial json.RawMessage) (Merger, error) {
	if len(initial) > 0 && !json.Valid(initial) {
		return nil, fmt.Errorf("initial state is not valid json")
	}
	switch policy {
	case "", PolicyReplace:
		return Replace{Empty: orDefault(initial, "{}")}, nil
	case PolicyAppend:
		return AppendLog{Empty: orDefault(initial, "[]")}, nil
	case PolicyMergePatch:
		return MergePatch{Empty: orDefault(initial, "{}")}, nil
	default:
		return nil, fmt.Errorf("unknown merge policy %q", policy)
	}
}

// Valid reports whether policy names a known merger.
func Valid(policy string) bool {
	switch policy {
	case "", PolicyReplace, PolicyAppend, PolicyMergePatch:
		return true
	}
	return false
}

// validPatch rejects empty, malformed and null patches.
func validPatch(patch json.RawMessage) bool {
	trimmed := bytes.TrimSpace(patch)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) && json.Valid(trimmed)
}

func orDefault(v json.RawMessage, def string) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage(def)
	}
	return clone(v)
}

func clone(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}

// Replace treats every patch as a full snapshot: last writer wins.
type Replace struct {
	Empty json.RawMessage
}

func (r Replace) Initial() json.RawMessage { return clone(r.Empty) }

func (r Replace) Apply(_, patch json.RawMessage) (json.RawMessage, error) {
	if !validPatch(patch) {
		return nil, ErrInvalidPatch
	}
	return clone(patch), nil
}

// AppendLog keeps the snapshot as a JSON array of every patch received.
type AppendLog struct {
	Empty json.RawMessage
}

func (a AppendLog) Initial() json.RawMessage { return clone(a.Empty) }

func (a AppendLog) Apply(current, patch json.RawMessage) (json.RawMessage, error) {
	if !validPatch(patch) {
		return nil, ErrInvalidPatch
	}
	var log []json.RawMessage
	if len(current) > 0 {
		if err := json.Unmarshal(current, &log); err != nil {
			return nil, fmt.Errorf("decode patch log: %w", err)
		}
	}
	log = append(log, clone(patch))
	out, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("encode patch log: %w", err)
	}
	return out, nil
}

// MergePatch applies RFC 7386 JSON merge patches to an object snapshot.
type MergePatch struct {
	Empty json.RawMessage
}

func (m MergePatch) Initial() json.RawMessage { return clone(m.Empty) }

func (m MergePatch) Apply(current, patch json.RawMessage) (json.RawMessage, error) {
	if !validPatch(patch) {
		return nil, ErrInvalidPatch
	}
	if len(current) == 0 {
		current = m.Initial()
	}
	out, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	// Later patches can only merge into an object.
	if trimmed := bytes.TrimSpace(out); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: merged state is not an object", ErrInvalidPatch)
	}
	return out, nil
}
