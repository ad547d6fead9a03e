package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vidbatch/internal/config"
	"vidbatch/internal/testsupport"
)

const ffprobeStubScript = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","width":1920,"height":1080,"avg_frame_rate":"25/1"}],"format":{"duration":"65.2"}}
JSON
`

// The last argument is the output path; $3 is the input after "-y -i".
const ffmpegStubScript = `#!/bin/sh
if [ "$1" = "-hide_banner" ]; then
  echo " V....D libx264              libx264 H.264"
  exit 0
fi
for last; do :; done
case "$3" in
  *broken*) echo "Invalid data found when processing input" >&2; exit 1 ;;
esac
head -c 10 "$3" > "$last"
`

type cliTestEnv struct {
	cfg        *config.Config
	base       string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubBinary("ffmpeg", ffmpegStubScript),
		testsupport.WithStubBinary("ffprobe", ffprobeStubScript),
		testsupport.WithAPIBind("127.0.0.1:1"),
	)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("VIDBATCH_FFMPEG", "")
	t.Setenv("VIDBATCH_FFPROBE", "")

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(base, "vidbatch.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, base: base, configPath: configPath}
}

func (e *cliTestEnv) writeVideo(t *testing.T, name string, size int) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(e.cfg.Paths.InputDir, name), size)
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}
