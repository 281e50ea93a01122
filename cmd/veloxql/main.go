// veloxql generates typed schema declarations and checks schemas against
// live databases.
//
//	veloxql gen --schema schema.yaml --out internal/model
//	veloxql check --config veloxql.yaml
package main

import (
	"fmt"
	"os"

	"github.com/syssam/veloxql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "veloxql:", err)
		os.Exit(1)
	}
}
