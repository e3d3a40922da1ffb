//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const testToken = "integration-token"

// TestConfig holds configuration for integration tests
type TestConfig struct {
	BinaryPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		BinaryPath: getBinaryPath(),
		Verbose:    os.Getenv("RESTWRAP_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the restwrap binary
func getBinaryPath() string {
	if path := os.Getenv("RESTWRAP_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../restwrap",
		"./restwrap",
		"../restwrap",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "restwrap"
}

// SkipIfMissingBinary skips the test if the restwrap binary is not built
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("restwrap binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// APIServer is a small paginated API guarded by a bearer token.
type APIServer struct {
	*httptest.Server

	Requests   atomic.Int32
	TokenCalls atomic.Int32
}

// NewAPIServer starts the API. Users are served three per page.
func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()

	api := &APIServer{}
	users := []map[string]any{
		{"id": 1, "name": "ana"},
		{"id": 2, "name": "ben"},
		{"id": 3, "name": "cleo"},
		{"id": 4, "name": "dev"},
		{"id": 5, "name": "eli"},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		api.TokenCalls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": testToken,
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}

		start := min((page-1)*3, len(users))
		end := min(start+3, len(users))

		var next any
		if end < len(users) {
			next = "/users?page=" + strconv.Itoa(page+1)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"data":   users[start:end],
			"paging": map[string]any{"next": next},
		})
	})

	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		if id < 1 || id > len(users) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"data": users[id-1]})
	})

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any

		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})

			return
		}

		body["id"] = len(users) + 1
		writeJSON(w, http.StatusCreated, map[string]any{"data": body})
	})

	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			api.Requests.Add(1)

			if r.Header.Get("Authorization") != "Bearer "+testToken {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})

				return
			}
		}

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.Close)

	return api
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteResources writes a resource mapping for the API and returns its path.
func WriteResources(t *testing.T, baseURL string) string {
	t.Helper()

	mapping := strings.ReplaceAll(`users:
  resource: "BASE/users"
  docs: "BASE/docs/users"
user:
  resource: "BASE/users/{id}"
  docs: "BASE/docs/user"
`, "BASE", baseURL)

	path := filepath.Join(t.TempDir(), "resources.yml")
	require.NoError(t, os.WriteFile(path, []byte(mapping), 0o600))

	return path
}

// CommandRunner provides utilities for running restwrap commands
type CommandRunner struct {
	config    *TestConfig
	t         *testing.T
	resources string
	home      string
}

// NewCommandRunner creates a command runner bound to a resource mapping. It
// runs with an empty home directory so no user configuration is picked up.
func NewCommandRunner(config *TestConfig, t *testing.T, resources string) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:    config,
		t:         t,
		resources: resources,
		home:      t.TempDir(),
	}
}

// Run executes a restwrap command and returns its output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--resources", runner.resources, "--token", testToken}, args...)

	cmd := exec.Command(runner.config.BinaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+runner.home)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	require.True(t, json.Valid([]byte(strings.TrimSpace(output))), "output is not JSON: %s", output)
}
