package payment

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// ConsoleConfirm writes each prompt to w and reads a yes/no answer from r.
// Anything other than "y" or "yes" declines. Intended for operator-attended
// runs; servers normally use AutoConfirm.
func ConsoleConfirm(r io.Reader, w io.Writer) Confirmer {
	br := bufio.NewReader(r)
	return ConfirmerFunc(func(_ context.Context, prompt string) (bool, error) {
		if _, err := fmt.Fprintf(w, "%s [y/N]: ", prompt); err != nil {
			return false, err
		}
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}

// Tally is a Counter keeping atomic per-outcome totals.
type Tally struct {
	settled  atomic.Int64
	declined atomic.Int64
}

func (t *Tally) Inc(outcome Outcome) {
	switch outcome {
	case Settled:
		t.settled.Add(1)
	case Declined:
		t.declined.Add(1)
	}
}

// Settled returns the number of settled attempts recorded.
func (t *Tally) Settled() int64 { return t.settled.Load() }

// Declined returns the number of declined attempts recorded.
func (t *Tally) Declined() int64 { return t.declined.Load() }
