package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubebot/internal/model"
	"tubebot/internal/util"
)

func argsContain(args []string, want ...string) bool {
	joined := " " + strings.Join(args, " ") + " "
	for _, w := range want {
		if !strings.Contains(joined, " "+w+" ") {
			return false
		}
	}
	return true
}

func TestBuildFetchArgsAudio(t *testing.T) {
	args := buildFetchArgs("abc", FetchSpec{
		Kind:             model.KindAudio,
		OutputPath:       "/tmp/out.mp3",
		AudioBitrateKbps: 128,
	})
	if !argsContain(args, "-x", "--audio-format mp3", "--audio-quality 128K", "--no-playlist") {
		t.Errorf("args = %v", args)
	}
	if args[len(args)-1] != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("last arg = %q", args[len(args)-1])
	}
}

func TestBuildFetchArgsVideoSelector(t *testing.T) {
	tests := []struct {
		name    string
		spec    FetchSpec
		wantSel string
	}{
		{
			name:    "best sentinel gets capped selector",
			spec:    FetchSpec{Kind: model.KindVideo, FormatSelector: model.FormatBest, MaxSourceHeight: 720},
			wantSel: "best[height<=720][ext=mp4]/best[height<=720]/best",
		},
		{
			name:    "empty selector behaves like best",
			spec:    FetchSpec{Kind: model.KindVideo, MaxSourceHeight: 480},
			wantSel: "best[height<=480][ext=mp4]/best[height<=480]/best",
		},
		{
			name:    "explicit format id passes through",
			spec:    FetchSpec{Kind: model.KindVideo, FormatSelector: "137+140", MaxSourceHeight: 720},
			wantSel: "137+140",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := videoFormatSelector(tt.spec); got != tt.wantSel {
				t.Errorf("selector = %q, want %q", got, tt.wantSel)
			}
			args := buildFetchArgs("x", tt.spec)
			if !argsContain(args, "-f "+tt.wantSel) {
				t.Errorf("args = %v", args)
			}
		})
	}
}

func TestBuildRecompressArgs(t *testing.T) {
	audio := buildRecompressArgs("/tmp/in.mp3", "/tmp/out.mp3", RecompressSpec{
		Kind:             model.KindAudio,
		AudioBitrateKbps: 64,
	})
	if !argsContain(audio, "-c:a libmp3lame", "-b:a 64k", "-vn", "-y") {
		t.Errorf("audio args = %v", audio)
	}

	video := buildRecompressArgs("/tmp/in.mp4", "/tmp/out.mp4", RecompressSpec{
		Kind: model.KindVideo,
		CRF:  32,
	})
	if !argsContain(video, "-c:v libx264", "-crf 32", "-pix_fmt yuv420p", "-movflags +faststart") {
		t.Errorf("video args = %v", video)
	}
	if argsContain(video, "-vf") {
		t.Errorf("unscaled rung must not carry a scale filter: %v", video)
	}

	scaled := buildRecompressArgs("/tmp/in.mp4", "/tmp/out.mp4", RecompressSpec{
		Kind:        model.KindVideo,
		CRF:         35,
		ScaleHeight: 480,
	})
	if !argsContain(scaled, "-vf scale=-2:480") {
		t.Errorf("scaled args = %v", scaled)
	}
}

// fsRunner simulates yt-dlp/ffmpeg by writing the output file ffmpeg-style
// (last argument) with a scripted size.
type fsRunner struct {
	t          *testing.T
	err        error
	outputSize int64
}

func (f *fsRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	if f.err != nil {
		return util.CmdResult{}, f.err
	}
	out := spec.Args[len(spec.Args)-1]
	if strings.HasPrefix(out, "https://") {
		// yt-dlp places the URL last; find the -o value instead.
		for i, a := range spec.Args {
			if a == "-o" && i+1 < len(spec.Args) {
				out = spec.Args[i+1]
			}
		}
	}
	if err := os.WriteFile(out, make([]byte, f.outputSize), 0o644); err != nil {
		f.t.Fatal(err)
	}
	return util.CmdResult{}, nil
}

type runnerFunc func(context.Context, util.CmdSpec) (util.CmdResult, error)

func (f runnerFunc) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	return f(ctx, spec)
}

func TestFetchPassesCookies(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp3")
	var gotArgs []string
	runner := runnerFunc(func(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		gotArgs = spec.Args
		return util.CmdResult{}, os.WriteFile(out, []byte("x"), 0o644)
	})

	tool := NewTool("yt-dlp", "ffmpeg", runner, WithCookies("/tmp/cookies.txt"))
	if err := tool.Fetch(context.Background(), "abc", FetchSpec{Kind: model.KindAudio, OutputPath: out}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !argsContain(gotArgs, "--cookies /tmp/cookies.txt") {
		t.Errorf("args missing cookies: %v", gotArgs)
	}
}

func TestFetchNoOutput(t *testing.T) {
	dir := t.TempDir()
	tool := NewTool("yt-dlp", "ffmpeg", &fsRunner{t: t, outputSize: 0})

	err := tool.Fetch(context.Background(), "abc", FetchSpec{
		Kind:       model.KindAudio,
		OutputPath: filepath.Join(dir, "out.mp3"),
	})
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v, want ErrNoOutput", err)
	}
}

func TestFetchRunnerError(t *testing.T) {
	tool := NewTool("yt-dlp", "ffmpeg", &fsRunner{t: t, err: errors.New("exit status 1")})
	err := tool.Fetch(context.Background(), "abc", FetchSpec{
		Kind:       model.KindAudio,
		OutputPath: filepath.Join(t.TempDir(), "out.mp3"),
	})
	if err == nil || errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v, want a non-ErrNoOutput failure", err)
	}
}

func TestRecompressReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, make([]byte, 1000), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewTool("yt-dlp", "ffmpeg", &fsRunner{t: t, outputSize: 400})

	got := tool.Recompress(context.Background(), path, RecompressSpec{Kind: model.KindVideo, CRF: 28})
	if got != path {
		t.Errorf("path = %q, want in-place %q", got, path)
	}
	if size := util.FileSize(path); size != 400 {
		t.Errorf("size = %d, want 400", size)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestRecompressKeepsOriginalOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, make([]byte, 1000), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		runner *fsRunner
	}{
		{"ffmpeg failure", &fsRunner{t: t, err: errors.New("exit status 1")}},
		{"empty output", &fsRunner{t: t, outputSize: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := NewTool("yt-dlp", "ffmpeg", tt.runner)
			got := tool.Recompress(context.Background(), path, RecompressSpec{Kind: model.KindVideo, CRF: 28})
			if got != path {
				t.Errorf("path = %q, want original", got)
			}
			if size := util.FileSize(path); size != 1000 {
				t.Errorf("original mutated, size = %d", size)
			}
		})
	}
}
