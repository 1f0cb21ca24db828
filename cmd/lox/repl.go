package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/lox/vm"
)

const historyFile = ".lox_history"

// lineReader yields one REPL line at a time. io.EOF ends the session.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// runREPL reads expressions line by line and evaluates each on one VM.
// A terminal gets line editing and history; other input is read plainly.
func runREPL(opts *options, stdin io.Reader, stdout, stderr io.Writer) int {
	var in lineReader
	if f, ok := stdin.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		histPath := historyPath()
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
		in = &historyReader{State: ln}
	} else {
		in = &plainReader{scanner: bufio.NewScanner(stdin), out: stdout}
	}

	repl(in, opts, stdout, stderr)
	return vm.ExitOK
}

func repl(in lineReader, opts *options, stdout, stderr io.Writer) {
	v := vm.NewVM()
	for {
		line, err := in.Prompt("> ")
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(stderr, err)
			}
			fmt.Fprintln(stdout)
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		chunk, err := opts.compile(context.Background(), line)
		if err != nil {
			fmt.Fprintln(stderr, err)
			continue
		}
		// Runtime errors are already reported; the VM is reusable afterwards.
		_, _ = execute(v, chunk, "repl", opts, stdout, stderr)
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

// historyReader records every non-blank line in the liner history.
type historyReader struct {
	*liner.State
}

func (h *historyReader) Prompt(prompt string) (string, error) {
	line, err := h.State.Prompt(prompt)
	if err == nil && strings.TrimSpace(line) != "" {
		h.AppendHistory(line)
	}
	return line, err
}

type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}
