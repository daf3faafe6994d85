package cmd

import (
	"bytes"
	"fmt"
	"os"

	"grimm.is/zonefw/internal/config"
)

// RunFmt rewrites a configuration file in canonical HCL formatting. With
// write unset the result goes to stdout.
func RunFmt(o *Options, write bool) error {
	data, err := os.ReadFile(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	formatted, err := config.Format(data, o.ConfigFile)
	if err != nil {
		return err
	}

	if !write {
		_, err = o.stdout().Write(formatted)
		return err
	}
	if bytes.Equal(data, formatted) {
		return nil
	}

	info, err := os.Stat(o.ConfigFile)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.ConfigFile, formatted, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintln(o.stdout(), o.ConfigFile)
	return nil
}
