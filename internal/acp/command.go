package acp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"monitor/internal/types"
)

const (
	defaultAgentBin = "opencode"
	probeTimeout    = 5 * time.Second
)

func resolveBin(entryBin, defaultBin string) string {
	if bin := strings.TrimSpace(entryBin); bin != "" {
		return bin
	}
	if bin := strings.TrimSpace(defaultBin); bin != "" {
		return bin
	}
	return defaultAgentBin
}

// command builds an agent invocation. When the binary is resolved from PATH,
// common install locations are appended so processes launched with a minimal
// environment still find it.
func command(bin string, args ...string) *exec.Cmd {
	cmd := exec.Command(bin, args...)
	setAgentPath(cmd, bin)
	return cmd
}

func commandContext(ctx context.Context, bin string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, bin, args...)
	setAgentPath(cmd, bin)
	return cmd
}

func setAgentPath(cmd *exec.Cmd, bin string) {
	if !strings.Contains(bin, string(os.PathSeparator)) {
		cmd.Env = append(os.Environ(), "PATH="+extendedPath())
	}
}

func extendedPath() string {
	paths := strings.Split(os.Getenv("PATH"), ":")
	extras := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
		"/usr/sbin",
		"/sbin",
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		extras = append(extras,
			home+"/.local/bin",
			home+"/.cargo/bin",
			home+"/.bun/bin",
		)
	}
	for _, extra := range extras {
		found := false
		for _, p := range paths {
			if p == extra {
				found = true
				break
			}
		}
		if !found {
			paths = append(paths, extra)
		}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}

// CheckInstallation verifies the agent binary runs and returns its version,
// "" when the binary prints nothing.
func CheckInstallation(ctx context.Context, bin string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	output, err := commandContext(ctx, bin, "--version").Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out checking the agent CLI; make sure `%s --version` runs", bin)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", fmt.Errorf("agent CLI not found; install it and ensure `%s` is on your PATH", bin)
		}
		return "", fmt.Errorf("agent CLI failed to start: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// DoctorReport is the result of probing the agent installation.
type DoctorReport struct {
	OK      bool   `json:"ok"`
	Bin     string `json:"bin"`
	Version string `json:"version,omitempty"`
	ACPOK   bool   `json:"acpOk"`
	Details string `json:"details,omitempty"`
}

// Doctor probes the agent binary and its ACP mode.
func Doctor(ctx context.Context, bin string) DoctorReport {
	bin = resolveBin(bin, "")
	report := DoctorReport{Bin: bin}
	version, err := CheckInstallation(ctx, bin)
	if err != nil {
		report.Details = err.Error()
		return report
	}
	report.Version = version

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := commandContext(probeCtx, bin, "acp", "--help").Run(); err != nil {
		report.Details = fmt.Sprintf("failed to run `%s acp --help`", bin)
		return report
	}
	report.ACPOK = true
	report.OK = version != ""
	return report
}

// ListSessions runs the agent's session listing in the workspace directory.
// Empty or unparseable output reads as no sessions.
func ListSessions(ctx context.Context, entry types.WorkspaceEntry, bin string) ([]types.SessionInfo, error) {
	cmd := commandContext(ctx, resolveBin(entry.AgentBin, bin), "session", "list", "--format", "json")
	cmd.Dir = entry.Path
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list agent sessions: %w", err)
	}
	return parseSessionList(string(output)), nil
}

// ListProviders runs the agent's model listing and groups `provider/model`
// lines into providers.
func ListProviders(ctx context.Context, entry types.WorkspaceEntry, bin string) ([]types.ProviderInfo, error) {
	cmd := commandContext(ctx, resolveBin(entry.AgentBin, bin), "models")
	cmd.Dir = entry.Path
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list agent models: %w", err)
	}
	return parseProviderModels(string(output)), nil
}

func parseSessionList(output string) []types.SessionInfo {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	var sessions []types.SessionInfo
	if err := json.Unmarshal([]byte(output), &sessions); err != nil {
		return nil
	}
	return sessions
}

func parseProviderModels(output string) []types.ProviderInfo {
	byProvider := map[string][]types.ProviderModel{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		providerID, modelID, ok := strings.Cut(line, "/")
		if !ok || providerID == "" || modelID == "" {
			continue
		}
		byProvider[providerID] = append(byProvider[providerID], types.ProviderModel{
			ID:   modelID,
			Name: modelID,
		})
	}
	providers := make([]types.ProviderInfo, 0, len(byProvider))
	for id, models := range byProvider {
		providers = append(providers, types.ProviderInfo{ID: id, Name: id, Models: models})
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })
	return providers
}
