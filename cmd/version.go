package cmd

import (
	"fmt"

	"grimm.is/zonefw/internal/brand"
)

// RunVersion prints version information.
func RunVersion(o *Options) {
	fmt.Fprintln(o.stdout(), brand.VersionString())
}
