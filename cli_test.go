package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

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

func TestCLI_RunAndCheck(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "year9")
	outDir := filepath.Join(root, "out")
	writeInput(t, in, examplePreferences, exampleCourses)
	db := filepath.Join(root, "runs.db")
	prom := filepath.Join(root, "selection.prom")

	text, err := execute(t, "run", in, "2", "2", "--out", outDir, "--seed", "4", "--sqlite", db, "--metrics", prom)
	require.NoError(t, err)
	require.Contains(t, text, "All constraints satisfied.")
	require.FileExists(t, filepath.Join(outDir, "selections.json"))
	require.FileExists(t, db)
	require.FileExists(t, prom)

	text, err = execute(t, "check", in, "--out", outDir)
	require.NoError(t, err)
	require.Contains(t, text, "block 2 (2 seats)")
}

func TestCLI_Shortlist(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "year9")
	outDir := filepath.Join(root, "out")
	writeInput(t, in, examplePreferences, exampleCourses)

	text, err := execute(t, "shortlist", in, "--courses", "2", "--out", outDir)
	require.NoError(t, err)
	require.Contains(t, text, "Shortlist (2 instances):")
	require.FileExists(t, filepath.Join(outDir, "shortlist.csv"))
	require.NoFileExists(t, filepath.Join(outDir, "selections.json"))
}

func TestCLI_Errors(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "year9")
	writeInput(t, in, examplePreferences, "course\nA\n")

	_, err := execute(t, "run", in, "--out", filepath.Join(root, "out"))
	require.ErrorIs(t, err, ErrUnknownCourse)

	_, err = execute(t, "run", in, "many")
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = execute(t, "run")
	require.ErrorIs(t, err, ErrInvalidConfig)

	writeInput(t, in, examplePreferences, exampleCourses)
	_, err = execute(t, "check", in, "--out", filepath.Join(root, "empty"))
	require.ErrorIs(t, err, ErrNoResult)
}

func TestResolveConfig_Precedence(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: from-file\nshortlist_size: 9\nblocks: 5\nslots: 4\n"), 0o644))

	resolve := func(args ...string) *Config {
		t.Helper()
		cmd, rest, err := newRootCommand().Find(append([]string{"run"}, args...))
		require.NoError(t, err)
		require.NoError(t, cmd.ParseFlags(rest))

		opts := &options{config: path}
		opts.size, _ = cmd.Flags().GetInt("courses")
		opts.blocks, _ = cmd.Flags().GetInt("blocks")
		opts.slots, _ = cmd.Flags().GetInt("slots")
		cfg, err := resolveConfig(cmd, cmd.Flags().Args(), opts)
		require.NoError(t, err)
		return cfg
	}

	cfg := resolve()
	require.Equal(t, "from-file", cfg.Input)
	require.Equal(t, 9, cfg.ShortlistSize)
	require.Equal(t, 5, cfg.Blocks)
	require.Equal(t, 4, cfg.Slots)

	cfg = resolve("dir", "6", "3")
	require.Equal(t, "dir", cfg.Input)
	require.Equal(t, 6, cfg.ShortlistSize)
	require.Equal(t, 3, cfg.Blocks)
	require.Equal(t, 4, cfg.Slots)

	cfg = resolve("dir", "6", "3", "--courses", "8", "--slots", "2")
	require.Equal(t, 8, cfg.ShortlistSize)
	require.Equal(t, 3, cfg.Blocks)
	require.Equal(t, 2, cfg.Slots)
}
