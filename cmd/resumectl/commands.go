package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"resume-editor/internal/editor"
	"resume-editor/internal/exporter"
	"resume-editor/internal/importer"
	"resume-editor/internal/shared/config"
)

func (c *cli) load(ctx context.Context, path string) ([]*editor.Block, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > importer.MaxSize {
		return nil, fmt.Errorf("%s: %w", path, importer.ErrTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	blocks, err := importer.Import(ctx, data, "", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return blocks, nil
}

// write sends body to --output when set, otherwise to stdout.
func (c *cli) write(body func(io.Writer) error) error {
	if c.output == "" {
		return body(c.out)
	}
	var buf bytes.Buffer
	if err := body(&buf); err != nil {
		return err
	}
	return os.WriteFile(c.output, buf.Bytes(), 0o644)
}

func (c *cli) runImport(cmd *cobra.Command, args []string) error {
	blocks, err := c.load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return c.write(func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(blocks)
	})
}

func (c *cli) runExport(cmd *cobra.Command, args []string) error {
	format, err := exporter.ParseFormat(c.format)
	if err != nil {
		return err
	}
	blocks, err := c.load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return c.write(func(w io.Writer) error {
		return exporter.Write(w, format, blocks)
	})
}

func (c *cli) runRewrite(cmd *cobra.Command, args []string) error {
	format, err := exporter.ParseFormat(c.format)
	if err != nil {
		return err
	}
	kind, err := editor.ParseKind(c.kind)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	blocks, err := c.load(ctx, args[0])
	if err != nil {
		return err
	}
	cfg := config.Load()
	completer, err := c.newCompleter(cfg)
	if err != nil {
		return err
	}
	if completer == nil {
		return editor.ErrNoCompleter
	}

	events := make(chan editor.Event, 64)
	ed := editor.NewEditor(editor.New(editor.Config{}, blocks...), editor.TriggerConfig{
		Completer:   completer,
		Timeout:     cfg.CompletionTimeout,
		MaxInFlight: int64(cfg.CompletionInFlight),
		OnEvent: func(ev editor.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		},
	})
	defer ed.Close()

	pending := map[editor.RunID]bool{}
	for i, b := range ed.Snapshot().Blocks {
		if b.Kind != kind {
			continue
		}
		n := utf8.RuneCountInString(b.Text())
		if n == 0 {
			continue
		}
		sel := editor.Selection{Anchor: editor.Point{Block: i}, Focus: editor.Point{Block: i, Offset: n}}
		changes, err := ed.ToggleMark(sel, editor.MarkUnderlined)
		if err != nil {
			return fmt.Errorf("underline block %d: %w", i, err)
		}
		for _, ch := range changes {
			if ch.On {
				pending[ch.Run] = true
			}
		}
	}

	for len(pending) > 0 {
		select {
		case ev := <-events:
			switch ev.Kind {
			case editor.EventSettled:
				if err := ed.Accept(ev.Run); err != nil {
					return fmt.Errorf("accept %s: %w", ev.Run, err)
				}
				delete(pending, ev.Run)
			case editor.EventFailed, editor.EventCancelled, editor.EventDiscarded:
				run, _ := ed.Run(ev.Run)
				st, _ := ed.Status(ev.Run)
				fmt.Fprintf(c.errOut, "rewrite skipped for %q: %s\n", run.Text, st.Notice)
				delete(pending, ev.Run)
			}
		case <-ctx.Done():
			return fmt.Errorf("rewrite: %w", ctx.Err())
		}
	}

	out := ed.Snapshot().Blocks
	return c.write(func(w io.Writer) error {
		return exporter.Write(w, format, out)
	})
}
