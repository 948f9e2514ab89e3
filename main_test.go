/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "ivywatch_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "ivywatch_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "ivywatch_test")
	cmd := exec.Command(binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

// jobArgs points a job at the project and repository fixtures.
func jobArgs(stateDir string, extra ...string) []string {
	args := []string{
		"--job", "nightly",
		"--workspace", filepath.Join("testdata", "project"),
		"--ivy", "ivy.xml",
		"--settings", filepath.Join("..", "repo", "ivysettings.xml"),
		"--properties-file", "build.properties",
		"--state-dir", stateDir,
	}
	return append(args, extra...)
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "ivywatch ") {
		t.Errorf("Expected version line, got %q", stdout)
	}

	stdout, _, _ = runCLI(t, "version", "--format", "json")
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if info["version"] == "" {
		t.Error("Expected a version field")
	}
}

func TestPoll(t *testing.T) {
	stateDir := t.TempDir()

	stdout, stderr, code := runCLI(t, append([]string{"poll"}, jobArgs(stateDir)...)...)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "unchanged" {
		t.Errorf("Expected the first poll to be unchanged, got %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(stateDir, "baselines", "nightly.json")); err != nil {
		t.Errorf("Expected a baseline to be recorded: %v", err)
	}

	stdout, stderr, code = runCLI(t, append([]string{"poll"}, jobArgs(stateDir, "--format", "json")...)...)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if result["changed"] != false || result["outcome"] != "compared" {
		t.Errorf("Expected an unchanged comparison, got %v", result)
	}

	// a different channel selects another core revision
	stdout, stderr, code = runCLI(t, append([]string{"poll"}, jobArgs(stateDir, "--properties", "core.channel=latest.integration")...)...)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "changed" {
		t.Errorf("Expected the revision change to be reported, got %q", stdout)
	}
}

func TestPollMissingIvyFile(t *testing.T) {
	stateDir := t.TempDir()
	args := append([]string{"poll"}, jobArgs(stateDir, "--ivy", "missing.xml")...)

	stdout, stderr, code := runCLI(t, args...)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "unchanged" {
		t.Errorf("Expected unchanged, got %q", stdout)
	}

	log, err := os.ReadFile(filepath.Join(stateDir, "logs", "nightly", "ivy-polling.log"))
	if err != nil {
		t.Fatalf("Failed to read polling log: %v", err)
	}
	if !strings.Contains(string(log), "You have to provide a valid Ivy file.") {
		t.Errorf("Expected the missing ivy file narrative, got:\n%s", log)
	}
}

func TestPollInvalidJob(t *testing.T) {
	_, stderr, code := runCLI(t, "poll", "--job", "", "--state-dir", t.TempDir())
	if code == 0 {
		t.Fatal("Expected a non-zero exit code")
	}
	if !strings.Contains(stderr, "job name is required") {
		t.Errorf("Expected a validation error, got %q", stderr)
	}
}

func TestSnapshot(t *testing.T) {
	stdout, stderr, code := runCLI(t, append([]string{"snapshot"}, jobArgs(t.TempDir())...)...)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var result struct {
		Dependencies map[string]struct {
			Revision string `json:"revision"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if got := result.Dependencies["acme:util"].Revision; got != "2.0" {
		t.Errorf("Expected acme:util 2.0, got %q", got)
	}
	if got := result.Dependencies["acme:core"].Revision; got != "1.0" {
		t.Errorf("Expected acme:core 1.0, got %q", got)
	}
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	previous := filepath.Join(dir, "previous.json")
	current := filepath.Join(dir, "current.json")
	write := func(path, content string) {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(previous, `{"dependencies": {"acme:core": {"revision": "1.0"}}}`)
	write(current, `{"dependencies": {"acme:core": {"revision": "1.1"}}}`)

	stdout, stderr, code := runCLI(t, "diff", previous, current)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "changed") {
		t.Errorf("Expected a change, got %q", stdout)
	}
	if !strings.Contains(stderr, "Checking comparison to previous recorded dependencies.") {
		t.Errorf("Expected the comparison narrative on stderr, got %q", stderr)
	}

	stdout, _, _ = runCLI(t, "diff", "--quiet", previous, previous)
	if strings.TrimSpace(stdout) != "unchanged" {
		t.Errorf("Expected no change, got %q", stdout)
	}

	_, _, code = runCLI(t, "diff", previous)
	if code == 0 {
		t.Error("Expected a missing argument to fail")
	}
}

func TestWatch(t *testing.T) {
	stateDir := t.TempDir()
	workspace, err := filepath.Abs(filepath.Join("testdata", "project"))
	if err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(stateDir, "changed")
	config := filepath.Join(stateDir, "ivywatch.yaml")
	content := `interval: 50ms
state-dir: ` + stateDir + `
node:
  name: builder-1
jobs:
  - name: nightly
    workspace: ` + workspace + `
    ivy: ivy.xml
    settings: ../repo/ivysettings.xml
    properties-files: build.properties
`
	if err := os.WriteFile(config, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(filepath.Join(mustGetwd(), "ivywatch_test"),
		"watch", "--config", config, "--on-change", "touch "+marker)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}

	baseline := filepath.Join(stateDir, "baselines", "nightly.json")
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(baseline); err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			t.Fatalf("Timed out waiting for the first poll\nstderr: %s", stderr.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("Expected a clean shutdown, got %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "watching jobs") {
		t.Errorf("Expected the startup log line, got %q", stderr.String())
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("Expected no change handler run without a dependency change")
	}
}
