package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brunobiangulo/tabclean/clean"
)

var errNoAnswer = errors.New("cleaning canceled: no answer given")

// promptPolicy asks the yes/no question on out and reads the answer from in.
// Yes drops rows, No fills with mean/mode. Unrecognized answers are asked
// again; end of input cancels.
func promptPolicy(in io.Reader, out io.Writer) clean.PolicyFunc {
	sc := bufio.NewScanner(in)
	return func(ctx context.Context, missing int) (clean.Policy, error) {
		for {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			fmt.Fprintf(out, "%d missing values found. Drop them? (Yes) or Fill with Mean/Mode? (No) ", missing)
			if !sc.Scan() {
				fmt.Fprintln(out)
				if err := sc.Err(); err != nil {
					return 0, err
				}
				return 0, errNoAnswer
			}
			p, err := clean.ParsePolicy(sc.Text())
			if err == nil {
				return p, nil
			}
			fmt.Fprintln(out, "Please answer Yes or No.")
		}
	}
}
