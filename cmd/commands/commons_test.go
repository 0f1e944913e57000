package commands

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/gi4nks/promptchain/internal/chain"
	"github.com/gi4nks/promptchain/internal/completion"
	"github.com/gi4nks/promptchain/internal/repos"
	"github.com/gi4nks/promptchain/internal/session"
	"github.com/gi4nks/promptchain/internal/utils"
)

var runStarted = time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC)

type call struct {
	credential string
	messages   []completion.Message
}

type testFixture struct {
	logger *zap.Logger
	deps   *Dependencies
	dir    string

	mu    sync.Mutex
	calls []call
}

// setupTest isolates the working directory, HOME and the key environment and
// wires a session whose completions come from client.
func setupTest(t *testing.T, client completion.ClientFunc) *testFixture {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PROMPTCHAIN_API_KEY", "")
	color.NoColor = true

	logger := zaptest.NewLogger(t)
	f := &testFixture{logger: logger, dir: dir}

	recording := completion.ClientFunc(func(ctx context.Context, credential string, messages []completion.Message) (string, error) {
		f.mu.Lock()
		f.calls = append(f.calls, call{credential: credential, messages: messages})
		f.mu.Unlock()
		return client(ctx, credential, messages)
	})

	repo, err := repos.NewRepository(logger)
	require.NoError(t, err)

	f.deps = NewDependencies(logger, zap.NewAtomicLevelAt(zap.WarnLevel))
	f.deps.Configuration().Set(utils.KeyAPIKey, "sk-configured")
	f.deps.repository = repo
	f.deps.session = session.New(logger, chain.NewExecutor(logger, recording), repo,
		session.WithClock(func() time.Time { return runStarted }))
	t.Cleanup(func() { f.deps.Close() })

	return f
}

func (f *testFixture) recordedCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// replies answers with the given responses in order.
func replies(responses ...string) completion.ClientFunc {
	var mu sync.Mutex
	return func(ctx context.Context, credential string, messages []completion.Message) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		reply := responses[0]
		responses = responses[1:]
		return reply, nil
	}
}

func failing(err error) completion.ClientFunc {
	return func(ctx context.Context, credential string, messages []completion.Message) (string, error) {
		return "", err
	}
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
