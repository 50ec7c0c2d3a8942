package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/jpeg2png/internal/convert"
	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
	"github.com/AnyUserName/jpeg2png/internal/fixture"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs rootCmd with args and captures its output. Flags are
// reset first since the command tree is shared between tests.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	verbose, configFile = false, ""

	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errb.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// seedPhotos lays out two good JPEGs and one garbage file under dir/in.
func seedPhotos(t *testing.T, dir string) string {
	t.Helper()
	in := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(in, "a.jpg"), fixture.GradientJPEG(40, 30))
	writeFile(t, filepath.Join(in, "trip", "b.jpeg"), fixture.GradientJPEG(16, 9))
	writeFile(t, filepath.Join(in, "bad.jpg"), fixture.Garbage())
	return in
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "jpeg2png "+version)
}

func TestConvertSingleFileNextToSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeFile(t, src, fixture.GradientJPEG(12, 7))

	stdout, stderr, err := executeCommand(t, "convert", src)
	require.NoError(t, err, stderr)
	assert.Equal(t, src+" -> OK (12x7)\n", stdout)
	assert.Contains(t, stderr, "Converted: 1 / 1")
	assert.FileExists(t, filepath.Join(dir, "photo.png"))
}

func TestConvertDirectoryWithFailures(t *testing.T) {
	dir := t.TempDir()
	in := seedPhotos(t, dir)
	out := filepath.Join(dir, "out")
	reportPath := filepath.Join(out, DefaultReportName)

	stdout, stderr, err := executeCommand(t, "convert", in,
		"--out", out, "--workers", "2", "--profile", "fast", "--report", reportPath)
	require.Error(t, err, "a failed item must make the command fail")
	assert.Contains(t, err.Error(), "1 of 3")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, stdout, filepath.Join(in, "a.jpg")+" -> OK (40x30)")
	assert.Contains(t, stdout, filepath.Join(in, "trip", "b.jpeg")+" -> OK (16x9)")
	assert.Contains(t, stdout, filepath.Join(in, "bad.jpg")+" -> FAILED (DecodeError: ")
	assert.Contains(t, stderr, "Failed:    1")

	assert.FileExists(t, filepath.Join(out, "a.png"))
	assert.FileExists(t, filepath.Join(out, "trip", "b.png"))
	assert.NoFileExists(t, filepath.Join(out, "bad.png"))
	assert.FileExists(t, reportPath)

	stdout, _, err = executeCommand(t, "validate", reportPath)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Report is valid")

	stdout, _, err = executeCommand(t, "stats", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile:          fast")
	assert.Contains(t, stdout, "Succeeded:        2")
	assert.Contains(t, stdout, "DecodeError")
}

func TestConvertDestinationCollision(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	good := filepath.Join(in, "good.jpg")
	writeFile(t, good, fixture.GradientJPEG(10, 10))
	writeFile(t, filepath.Join(in, "photo.jpg"), fixture.GradientJPEG(6, 4))
	writeFile(t, filepath.Join(in, "photo.jpeg"), fixture.GradientJPEG(8, 2))

	reportPath := filepath.Join(dir, "report.json")
	stdout, _, err := executeCommand(t, "convert", in, "--report", reportPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")

	// The scan is lexical, so photo.jpeg claims photo.png first.
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, stdout, good+" -> OK (10x10)")
	assert.Contains(t, stdout, filepath.Join(in, "photo.jpeg")+" -> OK (8x2)")
	assert.Contains(t, stdout, filepath.Join(in, "photo.jpg")+" -> FAILED (WriteError: ")
	assert.Contains(t, stdout, "claimed by "+filepath.Join(in, "photo.jpeg"))
	assert.FileExists(t, filepath.Join(in, "good.png"))
	assert.FileExists(t, filepath.Join(in, "photo.png"))

	out, _, err := executeCommand(t, "validate", reportPath)
	require.NoError(t, err, out)

	stdout, _, err = executeCommand(t, "convert", good, good)
	require.Error(t, err)
	assert.Contains(t, stdout, good+" -> OK (10x10)")
	assert.Contains(t, stdout, good+" -> FAILED (WriteError: ")
}

func TestValidateDetectsModifiedOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeFile(t, src, fixture.GradientJPEG(20, 20))
	reportPath := filepath.Join(dir, "report.json")

	_, stderr, err := executeCommand(t, "convert", src, "--report", reportPath)
	require.NoError(t, err, stderr)

	writeFile(t, filepath.Join(dir, "a.png"), fixture.PNG(fixture.Gradient(20, 20)))

	stdout, _, err := executeCommand(t, "validate", reportPath)
	require.Error(t, err)
	assert.Contains(t, stdout, "hash mismatch")
}

func TestConvertMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.jpg")

	stdout, _, err := executeCommand(t, "convert", missing)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(stdout, missing+" -> FAILED (SourceUnavailable: "), stdout)
}

func TestConvertNoOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "a.png")
	writeFile(t, src, fixture.GradientJPEG(8, 8))
	writeFile(t, dst, []byte("keep me"))

	stdout, _, err := executeCommand(t, "convert", src, "--overwrite=false")
	require.Error(t, err)
	assert.Contains(t, stdout, "FAILED (WriteError: ")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
}

func TestConvertRejectsBadSettings(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.jpg")
	writeFile(t, src, fixture.GradientJPEG(8, 8))

	_, _, err := executeCommand(t, "convert", src, "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")

	t.Setenv("JPEG2PNG_PROFILE", "ultra")
	_, _, err = executeCommand(t, "convert", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
}

func TestConvertConfigFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeFile(t, src, fixture.GradientJPEG(8, 8))
	cfgPath := filepath.Join(dir, "jpeg2png.yaml")
	writeFile(t, cfgPath, []byte("out_dir: "+filepath.Join(dir, "pngs")+"\nworkers: 1\n"))

	_, stderr, err := executeCommand(t, "convert", src, "--config", cfgPath)
	require.NoError(t, err, stderr)
	assert.FileExists(t, filepath.Join(dir, "pngs", "a.png"))
}

func TestConvertNoJPEGsInDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))

	_, _, err := executeCommand(t, "convert", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JPEG files")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, convert.Result{Request: convert.NewRequest("x.jpg", ""), Width: 3, Height: 2})
	printResult(&buf, convert.Result{
		Request: convert.NewRequest("y.jpg", ""),
		Err:     apperrors.Newf(apperrors.KindPermissionDenied, "open", "y.jpg", "permission denied"),
	})
	assert.Equal(t,
		"x.jpg -> OK (3x2)\ny.jpg -> FAILED (PermissionDenied: open y.jpg: permission denied)\n",
		buf.String())
}
