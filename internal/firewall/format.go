package firewall

import (
	"fmt"
	"strconv"
)

// Match argument helpers. Each returns the argument words for one match
// fragment, or nothing when the fragment does not restrict the rule.

func inOut(in, out *Device) []string {
	var args []string
	if in != nil && !in.Any {
		args = append(args, invertArg(in.Invert), "-i", in.Name)
	}
	if out != nil && !out.Any {
		args = append(args, invertArg(out.Invert), "-o", out.Name)
	}
	return args
}

func srcDest(src, dest *Address) []string {
	var args []string
	if src != nil && src.IsRange() {
		args = append(args, "-m", "iprange", invertArg(src.Invert), "--src-range", rangeArg(src))
	} else if src != nil {
		args = append(args, invertArg(src.Invert), "-s", src.Prefix.String())
	}
	if dest != nil && dest.IsRange() {
		args = append(args, "-m", "iprange", invertArg(dest.Invert), "--dst-range", rangeArg(dest))
	} else if dest != nil {
		args = append(args, invertArg(dest.Invert), "-d", dest.Prefix.String())
	}
	return args
}

func rangeArg(a *Address) string {
	return a.Prefix.Addr().String() + "-" + a.End.String()
}

func extra(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func limitArgs(l Limit) []string {
	if l.Rate == 0 {
		return nil
	}
	args := []string{"-m", "limit", invertArg(l.Invert), "--limit", fmt.Sprintf("%d/%s", l.Rate, l.Unit)}
	if l.Burst > 0 {
		args = append(args, "--limit-burst", strconv.FormatUint(uint64(l.Burst), 10))
	}
	return args
}

func comment(parts ...string) []string {
	var s string
	for _, p := range parts {
		s += p
	}
	return []string{"-m", "comment", "--comment", quoted(s)}
}

func logPrefix(prefix string) []string {
	return []string{"-j", "LOG", "--log-prefix", quoted(prefix)}
}

func jump(target string) []string {
	return []string{"-j", target}
}

func invertArg(invert bool) string {
	if invert {
		return "!"
	}
	return ""
}

func quoted(s string) string {
	return fmt.Sprintf("%q", s)
}

// spec flattens argument fragments into one rule specification.
func spec(fragments ...[]string) []string {
	n := 0
	for _, f := range fragments {
		n += len(f)
	}
	args := make([]string, 0, n)
	for _, f := range fragments {
		args = append(args, f...)
	}
	return args
}
