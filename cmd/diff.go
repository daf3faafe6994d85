package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/zonefw/internal/i18n"
	"grimm.is/zonefw/internal/state"
)

var builtinChains = map[string]bool{
	"INPUT":       true,
	"OUTPUT":      true,
	"FORWARD":     true,
	"PREROUTING":  true,
	"POSTROUTING": true,
}

// RunDiff compares the rules the configuration generates against the last
// applied document, or against the live ruleset when live is set. It
// returns ErrDiffers when any family differs.
func RunDiff(ctx context.Context, o *Options, live bool) error {
	o.NoState = live
	e, err := setup(ctx, o)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer e.Close()

	out := o.stdout()
	fresh := e.freshCompiler(ctx)
	differs := false

	for _, f := range e.defaults.ManagedFamilies() {
		generated := fresh.Start(f).Build()

		var current, source string
		if live {
			source = f.SaveCommand()
			if current, err = e.manager.Live(f); err != nil {
				return fmt.Errorf("failed to list running ruleset: %w", err)
			}
		} else {
			last, err := e.manager.LastDocument(ctx, f)
			switch {
			case errors.Is(err, state.ErrNotFound):
				Printer.Fprintf(out, i18n.MsgNoHistory, f)
			case err != nil:
				return err
			default:
				current = last.Document
				source = fmt.Sprintf("%s %s", last.Kind, last.ID)
			}
		}

		text, err := diffRules(current, generated, source, f.String()+" generated")
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		differs = true
		fmt.Fprint(out, text)
	}

	if !differs {
		Printer.Fprintf(out, i18n.MsgNoDifferences)
		return nil
	}
	return ErrDiffers
}

// diffRules returns a unified diff of the rules in two documents, or an
// empty string when they append the same rules.
func diffRules(from, to, fromName, toName string) (string, error) {
	a, b := ruleLines(from), ruleLines(to)
	if strings.Join(a, "") == strings.Join(b, "") {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// ruleLines extracts the appended rules of a restore or save document,
// each prefixed with its table. Rules on builtin chains are hooks that are
// only written on first install, so they are left out.
func ruleLines(doc string) []string {
	var (
		table string
		rules []string
	)
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "*"):
			table = line[1:]
		case strings.HasPrefix(line, "-A "):
			fields := strings.Fields(line)
			if len(fields) < 2 || builtinChains[fields[1]] {
				continue
			}
			rules = append(rules, table+": "+line+"\n")
		}
	}
	return rules
}
