package configure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"golang.org/x/term"
)

// NewPrompter returns the form prompter when stdin is a terminal and the
// line prompter otherwise.
func NewPrompter(streams genericclioptions.IOStreams) plugin.Prompter {
	if f, ok := streams.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &FormPrompter{In: streams.In, Out: streams.Out}
	}
	return NewLinePrompter(streams.In, streams.Out)
}

// LinePrompter asks one field per line. An empty answer keeps the default.
type LinePrompter struct {
	out    io.Writer
	reader *bufio.Reader
}

var _ plugin.Prompter = (*LinePrompter)(nil)

// NewLinePrompter reads answers from in and writes prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{out: out, reader: bufio.NewReader(in)}
}

func (p *LinePrompter) Ask(ctx context.Context, fields []plugin.Field) (map[string]string, error) {
	answers := make(map[string]string, len(fields))
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(p.out, "%s%s: ", label(f), hint(f))

		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF {
			fmt.Fprintln(p.out)
		}
		if v := strings.TrimSpace(line); v != "" {
			answers[f.Key] = v
		} else {
			answers[f.Key] = f.Default
		}
	}
	return answers, nil
}

func label(f plugin.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

func hint(f plugin.Field) string {
	switch {
	case f.Default == "":
		return ""
	case f.Secret:
		return " [keep current]"
	default:
		return " [" + f.Default + "]"
	}
}
