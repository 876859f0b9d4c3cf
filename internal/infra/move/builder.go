package move

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"deepbook_go/internal/domain"
)

// Builder runs the Move toolchain and decodes the bytecode it dumps.
type Builder struct {
	command string
	logger  *slog.Logger
}

// NewBuilder wraps a build command line; " --path <dir>" is appended per package.
func NewBuilder(command string) *Builder {
	return &Builder{
		command: command,
		logger:  slog.Default().With("module", "move_builder"),
	}
}

// buildOutput is what `sui move build --dump-bytecode-as-base64` prints.
type buildOutput struct {
	Modules      []string `json:"modules"`
	Dependencies []string `json:"dependencies"`
	Digest       []int    `json:"digest"`
}

// Build compiles the package at path. Failures come back as *domain.BuildError.
func (b *Builder) Build(ctx context.Context, path string) (*domain.CompiledPackage, error) {
	name := filepath.Base(path)
	fail := func(err error) error {
		return &domain.BuildError{Package: name, Path: path, Err: err}
	}

	line := b.command + " --path " + shellQuote(path)
	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, lastLines(msg, 20))
		}
		return nil, fail(err)
	}

	out, err := decodeBuildOutput(stdout.Bytes())
	if err != nil {
		return nil, fail(err)
	}

	b.logger.Info("Package built",
		slog.String("package", name),
		slog.Int("modules", len(out.Modules)),
		slog.Int("dependencies", len(out.Dependencies)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

// decodeBuildOutput parses the JSON document; the toolchain may print progress lines first.
func decodeBuildOutput(raw []byte) (*domain.CompiledPackage, error) {
	start := bytes.IndexByte(raw, '{')
	if start < 0 {
		return nil, errors.New("build produced no JSON output")
	}

	var out buildOutput
	if err := json.Unmarshal(raw[start:], &out); err != nil {
		return nil, fmt.Errorf("failed to parse build output: %w", err)
	}
	if len(out.Modules) == 0 {
		return nil, errors.New("build output contains no modules")
	}

	pkg := &domain.CompiledPackage{Dependencies: out.Dependencies}
	for i, m := range out.Modules {
		code, err := base64.StdEncoding.DecodeString(m)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		pkg.Modules = append(pkg.Modules, code)
	}
	for _, d := range out.Digest {
		if d < 0 || d > 255 {
			return nil, fmt.Errorf("digest byte %d out of range", d)
		}
		pkg.Digest = append(pkg.Digest, byte(d))
	}
	return pkg, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
