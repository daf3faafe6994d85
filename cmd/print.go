package cmd

import (
	"context"
	"fmt"
)

// RunPrint writes the start document of every managed family without
// touching the live ruleset or the state database.
func RunPrint(ctx context.Context, o *Options) error {
	o.NoState = true
	e, err := setup(ctx, o)
	if err != nil {
		return err
	}
	defer e.Close()

	out := o.stdout()
	c := e.manager.Compiler()
	for _, f := range c.Defaults().ManagedFamilies() {
		b := c.Start(f)
		fmt.Fprintf(out, "# %s: %d chains, %d rules\n", f, b.Counts().Chains, b.Counts().Rules)
		fmt.Fprint(out, b.Build())
	}
	return nil
}
