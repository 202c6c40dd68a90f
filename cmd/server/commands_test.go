package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashAdminKey(t *testing.T) {
	out, err := execute(t, "hash-admin-key", "s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$argon2id$v=19$m=65536,t=3,p=2$"))

	_, err = execute(t, "hash-admin-key")
	assert.Error(t, err)
}

func TestReconcileInMemory(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	out, err := execute(t, "reconcile", "--at", "2026-10-19T00:05:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "затронуто записей: 0")
}

func TestReconcileRejectsBadTime(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := execute(t, "reconcile", "--at", "вчера")
	assert.Error(t, err)
}

func TestConfigErrorsSurface(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := execute(t, "reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}
