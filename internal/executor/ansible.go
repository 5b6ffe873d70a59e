package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// AnsibleExecutor invokes ansible-playbook for a single host and parses the
// JSON callback output into per-step results.
type AnsibleExecutor struct {
	// InventoryPath is the Ansible hosts file shared with the inventory store.
	InventoryPath string
	// PlaybookDir is the directory containing the playbooks.
	PlaybookDir string

	// run executes the command and returns combined stdout. Replaceable for
	// tests. A non-zero exit with parseable JSON output is not an error here;
	// failed tasks are reported through the parsed results.
	run func(ctx context.Context, name string, args []string, env []string) ([]byte, error)
}

// NewAnsibleExecutor creates an executor shelling out to ansible-playbook.
func NewAnsibleExecutor(inventoryPath, playbookDir string) *AnsibleExecutor {
	e := &AnsibleExecutor{
		InventoryPath: inventoryPath,
		PlaybookDir:   playbookDir,
	}
	e.run = runCommand
	return e
}

// Run executes the job's playbook limited to the job's host.
func (e *AnsibleExecutor) Run(ctx context.Context, job Job) ([]StepResult, error) {
	args := []string{
		"-i", e.InventoryPath,
		"--limit", job.Hostname,
	}
	if job.CheckMode {
		args = append(args, "--check")
	}
	if len(job.Tags) > 0 {
		args = append(args, "--tags", strings.Join(job.Tags, ","))
	}
	if len(job.Vars) > 0 {
		varsJSON, err := json.Marshal(job.Vars)
		if err != nil {
			return nil, fmt.Errorf("failed to encode vars for %s: %w", job.Hostname, err)
		}
		args = append(args, "--extra-vars", string(varsJSON))
	}
	args = append(args, e.playbookPath(job.Playbook))

	env := append(os.Environ(), "ANSIBLE_STDOUT_CALLBACK=json")

	out, err := e.run(ctx, "ansible-playbook", args, env)
	results, parseErr := parsePlaybookJSON(out, job.Hostname)
	if parseErr != nil {
		if err != nil {
			return nil, fmt.Errorf("ansible-playbook failed for %s: %w", job.Hostname, err)
		}
		return nil, fmt.Errorf("failed to parse ansible output for %s: %w", job.Hostname, parseErr)
	}
	return results, nil
}

func (e *AnsibleExecutor) playbookPath(playbook string) string {
	if e.PlaybookDir == "" {
		return playbook
	}
	return e.PlaybookDir + "/" + playbook
}

// playbookOutput mirrors the ansible JSON stdout callback structure.
type playbookOutput struct {
	Plays []struct {
		Tasks []struct {
			Task struct {
				Name string `json:"name"`
			} `json:"task"`
			Hosts map[string]taskHostResult `json:"hosts"`
		} `json:"tasks"`
	} `json:"plays"`
}

type taskHostResult struct {
	Changed     bool   `json:"changed"`
	Failed      bool   `json:"failed"`
	Unreachable bool   `json:"unreachable"`
	Skipped     bool   `json:"skipped"`
	Msg         any    `json:"msg"`
	Stderr      string `json:"stderr"`
}

// parsePlaybookJSON extracts the per-task outcomes for one host. The JSON
// document starts at the first '{' in the output; ansible may print warnings
// before it.
func parsePlaybookJSON(out []byte, hostname string) ([]StepResult, error) {
	start := strings.IndexByte(string(out), '{')
	if start < 0 {
		return nil, errors.New("no JSON document in output")
	}

	var doc playbookOutput
	if err := json.Unmarshal(out[start:], &doc); err != nil {
		return nil, err
	}

	var results []StepResult
	for _, play := range doc.Plays {
		for _, task := range play.Tasks {
			host, ok := task.Hosts[hostname]
			if !ok {
				continue
			}
			results = append(results, StepResult{
				Step:   task.Task.Name,
				Status: hostStatus(host),
				Detail: hostDetail(host),
			})
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no task results for host %s", hostname)
	}
	return results, nil
}

func hostStatus(h taskHostResult) StepStatus {
	switch {
	case h.Unreachable:
		return StepUnreachable
	case h.Failed:
		return StepFailed
	case h.Skipped:
		return StepSkipped
	case h.Changed:
		return StepChanged
	default:
		return StepOK
	}
}

func hostDetail(h taskHostResult) string {
	if msg, ok := h.Msg.(string); ok && msg != "" {
		return msg
	}
	return strings.TrimSpace(h.Stderr)
}

func runCommand(ctx context.Context, name string, args []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Failed or unreachable tasks exit non-zero; the JSON on stdout
			// still carries the per-task detail.
			return out, fmt.Errorf("exit status %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}
