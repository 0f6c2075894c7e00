package main

import (
	"fmt"

	"github.com/fwojciec/sitecrawl"
)

// Run executes the normalize command. Each URL is printed in its
// normalized form, or with the reason it was rejected.
func (c *NormalizeCmd) Run(deps *Dependencies) error {
	var failed int
	for _, raw := range c.URLs {
		normalized, err := deps.Normalizer.Normalize(raw, c.Base)
		if err != nil {
			failed++
			fmt.Fprintf(deps.Stderr, "%s: %s\n", raw, sitecrawl.ErrorMessage(err))
			continue
		}
		fmt.Fprintln(deps.Stdout, normalized)
	}
	if failed > 0 {
		return sitecrawl.Errorf(sitecrawl.EINVALID, "%d of %d URLs could not be normalized", failed, len(c.URLs))
	}
	return nil
}
