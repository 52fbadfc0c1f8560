package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	consolestream "github.com/wolfeidau/console-stream"
)

// commandStage runs an external tool over the asset. The tool reads the file
// substituted for {in} and writes its result to the file substituted for {out}.
type commandStage struct {
	command string
	args    []string
	ext     string
	kind    Kind
}

func newCommand(opts Options, _ Env) (Transform, error) {
	command, err := opts.String("command", "")
	if err != nil {
		return nil, err
	}
	if command == "" {
		return nil, errors.New("option command is required")
	}

	args, err := opts.Strings("args", []string{"{in}", "{out}"})
	if err != nil {
		return nil, err
	}
	ext, err := opts.String("ext", "")
	if err != nil {
		return nil, err
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	kind, err := opts.String("kind", "")
	if err != nil {
		return nil, err
	}
	switch Kind(kind) {
	case "", KindScript, KindStyle, KindFile:
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	return &commandStage{command: command, args: args, ext: strings.ToLower(ext), kind: Kind(kind)}, nil
}

func (s *commandStage) Name() string { return "command" }

func (s *commandStage) Apply(ctx context.Context, in Asset) ([]Asset, error) {
	dir, err := os.MkdirTemp("", "assetbuild-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	outExt := in.Ext
	if s.ext != "" {
		outExt = s.ext
	}
	inPath := filepath.Join(dir, "input"+in.Ext)
	outPath := filepath.Join(dir, "output"+outExt)

	if err := os.WriteFile(inPath, in.Content, 0o600); err != nil {
		return nil, err
	}

	replacer := strings.NewReplacer("{in}", inPath, "{out}", outPath)
	args := make([]string, len(s.args))
	for i, a := range s.args {
		args[i] = replacer.Replace(a)
	}

	process := consolestream.NewProcess(s.command, args,
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(100*time.Millisecond),
	)

	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", s.command, err)
		}

		switch e := event.Event.(type) {
		case *consolestream.OutputData:
			log.Debug().Str("command", s.command).Str("asset", in.Path).Msg(strings.TrimSpace(string(e.Data)))
		case *consolestream.ProcessEnd:
			if e.ExitCode != 0 {
				return nil, fmt.Errorf("%s exited with code %d", s.command, e.ExitCode)
			}
		}
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", s.command, err)
	}

	in.Content = content
	in.Ext = outExt
	if s.kind != "" {
		in.Kind = s.kind
	}
	return []Asset{in}, nil
}
