package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Confirmer asks yes/no questions on a terminal. Anything other than an
// explicit yes is a no.
type Confirmer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewConfirmer(in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{in: bufio.NewReader(in), out: out}
}

func (c *Confirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "%s [s/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// URLPrinter "opens" a URL by printing it for the user to follow.
type URLPrinter struct {
	Out io.Writer
}

func (p URLPrinter) Open(_ context.Context, url string) error {
	_, err := fmt.Fprintf(p.Out, "Abra este endereço para entrar:\n%s\n", url)
	return err
}
