// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptvcheck/internal/config"
	"github.com/ManuGH/iptvcheck/internal/report"
)

const fakeFFprobe = `#!/bin/sh
for a; do last="$a"; done
case "$last" in
  *broken*) echo "[h264 @ 0x55d1] error while decoding MB 31 17, bytestream -7" >&2 ;;
  *) echo "Last message repeated 3 times" >&2 ;;
esac
exit 0
`

const subPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:7
#EXTINF:6.0,
%s-7.ts
#EXTINF:6.0,
%s-8.ts
`

type fixture struct {
	dir      string
	ffprobe  string
	playlist string
}

// newFixture builds a playlist whose channels point at local sub-playlists,
// plus a fake ffprobe that fails segments named "broken".
func newFixture(t *testing.T, channels ...string) fixture {
	t.Helper()
	for _, key := range []string{
		config.EnvFFprobeBin, config.EnvTimeout, config.EnvWorkers, config.EnvRate,
		config.EnvStopOnFail, config.EnvLogLevel, config.EnvColorsDisabled, config.EnvNoColor,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	dir := t.TempDir()
	ffprobe := filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(ffprobe, []byte(fakeFFprobe), 0o755)) // #nosec G306 -- test executable

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, name := range channels {
		sub := strings.ReplaceAll(subPlaylist, "%s", name)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".m3u8"), []byte(sub), 0o600))
		b.WriteString("#EXTINF:-1 cn-id=" + name + "42," + name + "\n")
		b.WriteString(name + ".m3u8\n")
	}
	pl := filepath.Join(dir, "channels.m3u8")
	require.NoError(t, os.WriteFile(pl, []byte(b.String()), 0o600))

	return fixture{dir: dir, ffprobe: ffprobe, playlist: pl}
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_HealthyPlaylist(t *testing.T) {
	fx := newFixture(t, "ard", "zdf")

	code, out, errOut := runCLI("--ffprobe", fx.ffprobe, fx.playlist)
	assert.Equal(t, 0, code, "stderr: %s", errOut)
	assert.Equal(t, "ard                    checking\nard                    OK\n"+
		"zdf                    checking\nzdf                    OK\n", out)
}

func TestCLI_ScanAllReportsEveryChannel(t *testing.T) {
	fx := newFixture(t, "broken", "ard")

	code, out, _ := runCLI("--ffprobe", fx.ffprobe, fx.playlist)
	assert.Equal(t, 1, code)
	assert.Equal(t, "broken                 checking\nbroken                 FAILED\n"+
		"ard                    checking\nard                    OK\n", out)
}

func TestCLI_StopOnFail(t *testing.T) {
	fx := newFixture(t, "broken", "ard")

	code, out, _ := runCLI("-s", "--ffprobe", fx.ffprobe, fx.playlist)
	assert.Equal(t, 1, code)
	assert.Equal(t, "broken                 checking\nbroken                 FAILED\n", out)
}

func TestCLI_VerboseDump(t *testing.T) {
	fx := newFixture(t, "broken")

	code, out, _ := runCLI("-v", "--ffprobe", fx.ffprobe, fx.playlist)
	assert.Equal(t, 1, code)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "broken                 checking", lines[0])
	assert.Equal(t, "broken                 FAILED", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "/broken.m3u8"))
	assert.True(t, strings.HasSuffix(lines[3], "/broken-8.ts"), "newest segment is probed")
	assert.Equal(t, "[h264 @ 0x55d1] error while decoding MB 31 17, bytestream -7", lines[4])
	assert.Equal(t, "", lines[5])
}

func TestCLI_JSONReportAndMetrics(t *testing.T) {
	fx := newFixture(t, "ard", "broken")
	reportPath := filepath.Join(fx.dir, "report.json")
	metricsPath := filepath.Join(fx.dir, "iptvcheck.prom")

	code, out, errOut := runCLI(
		"--format", "json", "-j", "2",
		"--report", reportPath, "--metrics-file", metricsPath,
		"--ffprobe", fx.ffprobe, fx.playlist,
	)
	assert.Equal(t, 1, code, "stderr: %s", errOut)

	var events []report.Event
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev report.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 4)
	assert.Equal(t, []string{"checking", "verdict", "checking", "verdict"},
		[]string{events[0].Event, events[1].Event, events[2].Event, events[3].Event})
	assert.Equal(t, "ard", events[1].Title)
	assert.Equal(t, "OK", events[1].Status)
	assert.Equal(t, "broken", events[3].Title)
	assert.Equal(t, "FAILED", events[3].Status)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var doc report.SummaryDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.False(t, doc.OK)
	assert.Equal(t, 2, doc.Checked)
	assert.Equal(t, 1, doc.Failed)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "iptvcheck_run_healthy 0")
	assert.Contains(t, string(prom), "iptvcheck_channel_checks_total")
}

func TestCLI_ConfigFile(t *testing.T) {
	fx := newFixture(t, "broken", "ard")
	cfgPath := filepath.Join(fx.dir, "iptvcheck.yaml")
	cfg := "check:\n  stopOnFail: true\nprober:\n  bin: " + fx.ffprobe + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	code, out, _ := runCLI("-c", cfgPath, fx.playlist)
	assert.Equal(t, 1, code)
	assert.Equal(t, "broken                 checking\nbroken                 FAILED\n", out)
}

func TestCLI_ExtraNoisePatternFromConfig(t *testing.T) {
	fx := newFixture(t, "broken")
	cfgPath := filepath.Join(fx.dir, "iptvcheck.yaml")
	cfg := "noise:\n  extraPatterns:\n    - 'error while decoding MB'\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	code, out, _ := runCLI("-c", cfgPath, "--ffprobe", fx.ffprobe, fx.playlist)
	assert.Equal(t, 0, code)
	assert.Equal(t, "broken                 checking\nbroken                 OK\n", out)
}

func TestCLI_SetupErrors(t *testing.T) {
	fx := newFixture(t, "ard")
	badCfg := filepath.Join(fx.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badCfg, []byte("check:\n  parallel: 4\n"), 0o600))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing playlist argument", []string{"--ffprobe", fx.ffprobe}, "accepts 1 arg(s)"},
		{"missing playlist file", []string{"--ffprobe", fx.ffprobe, filepath.Join(fx.dir, "nope.m3u8")}, "load playlist"},
		{"unknown config key", []string{"-c", badCfg, "--ffprobe", fx.ffprobe, fx.playlist}, "unknown config field"},
		{"invalid workers", []string{"-j", "0", "--ffprobe", fx.ffprobe, fx.playlist}, "check.workers"},
		{"ffprobe not found", []string{"--ffprobe", filepath.Join(fx.dir, "no-ffprobe"), fx.playlist}, "prober binary not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(tt.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tt.wantErr)
		})
	}
}

func TestCLI_CheckConfig(t *testing.T) {
	fx := newFixture(t)
	cfgPath := filepath.Join(fx.dir, "iptvcheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("prober:\n  bin: "+fx.ffprobe+"\n"), 0o600))

	code, out, errOut := runCLI("check-config", "-c", cfgPath)
	assert.Equal(t, 0, code, "stderr: %s", errOut)
	assert.Contains(t, out, "is valid")

	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  format: xml\n"), 0o600))
	code, _, errOut = runCLI("check-config", "-c", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "output.format")
}

func TestCLI_PlaylistNamedLikeSubcommand(t *testing.T) {
	fx := newFixture(t, "ard")
	data, err := os.ReadFile(fx.playlist)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(fx.dir, "check-config"), data, 0o600))
	t.Chdir(fx.dir)

	code, out, errOut := runCLI("--ffprobe", fx.ffprobe, "--", "check-config")
	assert.Equal(t, 0, code, "stderr: %s", errOut)
	assert.Equal(t, "ard                    checking\nard                    OK\n", out)
}
