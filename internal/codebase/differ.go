package codebase

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// TreeDiffer compares codebases file by file: the set of files, each
// file's executable bit and each file's bytes.
type TreeDiffer struct{}

// AreDifferent reports whether a and b differ.
func (TreeDiffer) AreDifferent(ctx context.Context, a, b *Codebase) (bool, error) {
	diffs, err := TreeDiffer{}.Diff(ctx, a, b)
	if err != nil {
		return false, err
	}
	return len(diffs) > 0, nil
}

// FileDiff describes how one file differs between two codebases.
type FileDiff struct {
	Path       string `json:"path"`
	OnlyIn     string `json:"only_in,omitempty"`    // "a" or "b" when the file exists on one side only
	Executable bool   `json:"executable,omitempty"` // executable bits differ
	Content    bool   `json:"content,omitempty"`    // contents differ
}

// Diff returns every differing file, sorted by path.
func (TreeDiffer) Diff(ctx context.Context, a, b *Codebase) ([]FileDiff, error) {
	fsA, fsB := a.FS(), b.FS()

	filesA, err := ListFiles(fsA)
	if err != nil {
		return nil, err
	}
	filesB, err := ListFiles(fsB)
	if err != nil {
		return nil, err
	}

	var diffs []FileDiff
	i, j := 0, 0
	for i < len(filesA) || j < len(filesB) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case j >= len(filesB) || (i < len(filesA) && filesA[i] < filesB[j]):
			diffs = append(diffs, FileDiff{Path: filesA[i], OnlyIn: "a"})
			i++
		case i >= len(filesA) || filesB[j] < filesA[i]:
			diffs = append(diffs, FileDiff{Path: filesB[j], OnlyIn: "b"})
			j++
		default:
			d, err := compareFile(fsA, fsB, filesA[i])
			if err != nil {
				return nil, err
			}
			if d.Executable || d.Content {
				diffs = append(diffs, d)
			}
			i++
			j++
		}
	}

	slog.Debug("codebases compared", "a", a.String(), "b", b.String(), "differences", len(diffs))
	return diffs, nil
}

func compareFile(fsA, fsB billy.Filesystem, path string) (FileDiff, error) {
	d := FileDiff{Path: path}

	infoA, err := fsA.Lstat(path)
	if err != nil {
		return d, err
	}
	infoB, err := fsB.Lstat(path)
	if err != nil {
		return d, err
	}
	d.Executable = isExecutable(infoA) != isExecutable(infoB)

	if infoA.Size() != infoB.Size() {
		d.Content = true
		return d, nil
	}
	dataA, err := util.ReadFile(fsA, path)
	if err != nil {
		return d, err
	}
	dataB, err := util.ReadFile(fsB, path)
	if err != nil {
		return d, err
	}
	d.Content = !bytes.Equal(dataA, dataB)
	return d, nil
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode().Perm()&0o111 != 0
}
