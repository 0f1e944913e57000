package utils_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// testFixture provides test utilities for utils package tests
type testFixture struct {
	logger *zap.Logger
	dir    string
}

func setupTest(t *testing.T) *testFixture {
	dir := t.TempDir()
	// Keep .env lookups and the default config search inside the sandbox.
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PROMPTCHAIN_API_KEY", "")

	return &testFixture{
		logger: zaptest.NewLogger(t),
		dir:    dir,
	}
}
