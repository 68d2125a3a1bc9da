package types

// WorkspaceEntry identifies one directory an agent process runs in.
type WorkspaceEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	AgentBin string `json:"agentBin,omitempty"`
}

type ProviderModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProviderInfo struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Models []ProviderModel `json:"models"`
}
