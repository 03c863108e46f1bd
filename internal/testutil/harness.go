package testutil

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/labrecipe/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an app run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	Root      string
}

// RunApp writes files under a temporary root, points the app at it and
// runs it once. configure may adjust the configuration; its
// ProtocolPath is preset to the root.
func RunApp(t *testing.T, files map[string]string, configure func(root string, cfg *app.Config)) *HarnessResult {
	t.Helper()
	root := WriteFiles(t, files)

	cfg := app.Config{
		ProtocolPath: root,
		LogLevel:     "debug",
		LogFormat:    "text",
	}
	if configure != nil {
		configure(root, &cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	logs := &SafeBuffer{}
	result := &HarnessResult{Root: root}

	labApp, err := app.NewApp(out, logs, appConfig)
	if err == nil {
		err = labApp.Run(context.Background())
	}
	result.Output, result.LogOutput, result.Err = out.String(), logs.String(), err

	if os.Getenv("LABRECIPE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}
