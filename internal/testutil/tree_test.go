package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteTree_ReadTree(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"README":          "hello\n",
		"src/main.go":     "package main\n",
		"src/lib/util.go": "package lib\n",
		"empty":           "",
	}

	WriteTree(t, root, files)
	assert.Equal(t, files, ReadTree(t, root))
}

func TestMakeExecutable(t *testing.T) {
	root := t.TempDir()
	WriteTree(t, root, map[string]string{"run.sh": "#!/bin/sh\n", "data": "x"})

	assert.False(t, IsExecutable(t, root, "run.sh"))
	MakeExecutable(t, root, "run.sh")
	assert.True(t, IsExecutable(t, root, "run.sh"))
	assert.False(t, IsExecutable(t, root, "data"))
}
