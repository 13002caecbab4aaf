package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qumin/pkg/imageio"
	"qumin/pkg/masks"
)

func writeImage(t *testing.T, path string, offset uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			v := uint8(y*5 + x)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v/2 + offset, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInitLogger(t *testing.T) {
	l, err := initLogger("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	_, err = initLogger("loud", "text")
	assert.Error(t, err)
	_, err = initLogger("info", "xml")
	assert.Error(t, err)
}

func TestQuantifySummaryStitch(t *testing.T) {
	dir := t.TempDir()
	noConfig := filepath.Join(dir, "none.yaml")
	writeImage(t, filepath.Join(dir, "A1_1.png"), 10)
	writeImage(t, filepath.Join(dir, "A1_2.png"), 20)
	writeImage(t, filepath.Join(dir, "B1_1.png"), 30)

	_, err := execute(t, "quantify", "--config", noConfig, "--log-level", "error",
		"--dir", dir, "--lower-k", "0", "--upper-k", "1", "--save-stages", "--workers", "2")
	require.NoError(t, err)

	rows, err := imageio.ReadResultsFile(filepath.Join(dir, "Results.csv"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A1_1.png", rows[0].Source)
	assert.InDelta(t, 12.0, rows[0].UneditedMain, 1e-12)
	for _, r := range rows {
		assert.True(t, r.PC.Defined, r.Source)
	}

	out, err := execute(t, "summary", "--config", noConfig, "--log-level", "error",
		"--dir", dir, "--group-digits", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Median")
	assert.Contains(t, out, "A1")
	assert.Contains(t, out, "B1")

	_, err = execute(t, "stitch", "--config", noConfig, "--log-level", "error", "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "qumin_stitched", imageio.StitchedFileName("A1_1")))

	// a relative --out-dir lands under --dir
	t.Cleanup(func() { stitchOutDir = "" })
	_, err = execute(t, "stitch", "--config", noConfig, "--log-level", "error",
		"--dir", dir, "--out-dir", "montages")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "montages", imageio.StitchedFileName("B1_1")))
}

func TestWarnThresholds(t *testing.T) {
	log, hook := logtest.NewNullLogger()

	warnThresholds(log, masks.Settings{LowerK: 0.25, UpperK: 0.5})
	assert.Empty(t, hook.AllEntries())

	warnThresholds(log, masks.DefaultSettings())
	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "PC will be undefined")
	assert.Equal(t, 0.25, entry.Data["lowerK"])
}

func TestQuantifyEmptyDir(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "quantify", "--config", filepath.Join(dir, "none.yaml"),
		"--log-level", "error", "--dir", dir)
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qumin.yaml")

	_, err := execute(t, "config", "init", "--config", path, "--log-level", "error")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init", "--config", path, "--log-level", "error")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
