package main

import (
	"fmt"
	"os"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/cli"

	// Register the wiki database adapters.
	_ "github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/sqlite"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := cli.NewRootCommand(Version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
