// Package review runs a review session in a terminal.
package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/conorfennell/knolreview/internal/session"
)

// Run drives one session: it shows each card's front, reveals the back on
// Enter and records y/n as correct/incorrect. "q" or end of input abandons
// the session; answers already given stay saved.
func Run(ctx context.Context, ctl *session.Controller, in io.Reader, out io.Writer) (session.Tally, error) {
	s, err := ctl.Start(ctx)
	if err != nil {
		return session.Tally{}, err
	}
	if s.State == session.StateComplete {
		fmt.Fprintln(out, "No cards due. Come back later.")
		return s.Tally, nil
	}

	scanner := bufio.NewScanner(in)
	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.ToLower(strings.TrimSpace(scanner.Text())), true
	}
	quit := func(s session.Session) (session.Tally, error) {
		ctl.Abandon()
		fmt.Fprintf(out, "\nSession abandoned after %d cards.\n", s.Tally.Reviewed)
		return s.Tally, scanner.Err()
	}

	total := len(s.Queue)
	for s.State != session.StateComplete {
		if err := ctx.Err(); err != nil {
			ctl.Abandon()
			return s.Tally, err
		}
		card, _ := s.Current()

		fmt.Fprintf(out, "\n[%d/%d] Q: %s\n", s.Index+1, total, card.Front)
		if card.Category != "" {
			fmt.Fprintf(out, "      (%s)\n", card.Category)
		}
		fmt.Fprint(out, "Press Enter to reveal, q to quit: ")
		if line, ok := readLine(); !ok || line == "q" {
			return quit(s)
		}

		if s, err = ctl.Reveal(); err != nil {
			return s.Tally, err
		}
		fmt.Fprintf(out, "A: %s\n", card.Back)

		var correct bool
		for answered := false; !answered; {
			fmt.Fprint(out, "Did you get it right? [y/n/q]: ")
			line, ok := readLine()
			switch {
			case !ok || line == "q":
				return quit(s)
			case line == "y" || line == "yes":
				correct, answered = true, true
			case line == "n" || line == "no":
				correct, answered = false, true
			}
		}

		res, err := ctl.Respond(ctx, card.ID, correct)
		if err != nil {
			return s.Tally, err
		}
		if res.SaveErr != nil {
			fmt.Fprintf(out, "warning: progress not saved: %v\n", res.SaveErr)
		}
		fmt.Fprintf(out, "Next review: %s (%s)\n", res.Update.NextReviewAt.Local().Format("Mon Jan 2 15:04"), res.Update.Bucket)
		s = res.Session
	}

	fmt.Fprintf(out, "\nSession complete: %d reviewed, %d correct, %d incorrect.\n",
		s.Tally.Reviewed, s.Tally.Correct, s.Tally.Incorrect)
	return s.Tally, nil
}
