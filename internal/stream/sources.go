package stream

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileSource is a stream fed from the filesystem. Run drives it: it pushes
// items into the graph and returns when the input is exhausted or the
// context is canceled.
type FileSource struct {
	*Stream
	run func(ctx context.Context, s *Stream) error
}

// Run starts the source loop.
func (f *FileSource) Run(ctx context.Context) error {
	return f.run(ctx, f.Stream)
}

// FromTextFile emits the file's lines, one item per line, without the
// trailing newline.
func (g *Graph) FromTextFile(path string) *FileSource {
	src := g.Source("from_textfile")
	return &FileSource{
		Stream: src,
		run: func(ctx context.Context, s *Stream) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("from_textfile: %w", err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := s.Emit(ctx, scanner.Text()); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("from_textfile: %w", err)
			}
			return nil
		},
	}
}

// Filenames polls a directory and emits the path of every file it has not
// seen before. It runs until the context is canceled.
func (g *Graph) Filenames(dir string, poll time.Duration) *FileSource {
	if poll <= 0 {
		poll = time.Second
	}
	src := g.Source("filenames")
	return &FileSource{
		Stream: src,
		run: func(ctx context.Context, s *Stream) error {
			seen := make(map[string]struct{})
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			for {
				entries, err := os.ReadDir(dir)
				if err != nil {
					return fmt.Errorf("filenames: %w", err)
				}
				for _, e := range entries {
					if e.IsDir() {
						continue
					}
					path := filepath.Join(dir, e.Name())
					if _, ok := seen[path]; ok {
						continue
					}
					seen[path] = struct{}{}
					if err := s.Emit(ctx, path); err != nil {
						return err
					}
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}
}
