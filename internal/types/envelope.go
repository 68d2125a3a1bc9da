package types

import "encoding/json"

// Envelope is one unit of the agent event stream, tagged with the workspace
// that produced it. Params is left raw; decoding is best-effort and happens
// in the session package.
type Envelope struct {
	WorkspaceID string          `json:"workspaceId"`
	Method      string          `json:"method"`
	Params      json.RawMessage `json:"params,omitempty"`
}
