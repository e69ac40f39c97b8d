package overlay

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ConsoleRenderer paints the current combo list on one terminal line,
// for running without a graphical overlay. It rewrites the line in
// place on every frame.
type ConsoleRenderer struct {
	out      *os.File
	isTTY    bool
	lastLine string
}

func NewConsoleRenderer() *ConsoleRenderer {
	out := os.Stdout
	return &ConsoleRenderer{
		out:   out,
		isTTY: term.IsTerminal(int(out.Fd())),
	}
}

// Render draws the frame. Items print oldest to newest, left to right,
// right-aligned when the terminal width is known.
func (r *ConsoleRenderer) Render(f Frame) {
	line := renderLine(f)
	if line == r.lastLine {
		return
	}
	r.lastLine = line

	if !r.isTTY {
		fmt.Fprintln(r.out, line)
		return
	}

	width, _, err := term.GetSize(int(r.out.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}

	padded := line
	if n := len([]rune(line)); n < width {
		padded = strings.Repeat(" ", width-n) + line
	}
	fmt.Fprintf(r.out, "\r\033[2K%s", padded)
}

// Clear erases the rendered line, for shutdown.
func (r *ConsoleRenderer) Clear() {
	if r.isTTY {
		fmt.Fprint(r.out, "\r\033[2K")
	}
	r.lastLine = ""
}

func renderLine(f Frame) string {
	var parts []string
	for _, it := range f.Items {
		parts = append(parts, "["+it.Text+"]")
	}
	line := strings.Join(parts, " ")
	if f.Paused {
		if line != "" {
			line += "  "
		}
		line += "(paused)"
	}
	return line
}
