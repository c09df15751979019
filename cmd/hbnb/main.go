// Command hbnb is the console for the hbnb persistence engine.
package main

import (
	"os"

	"github.com/roach88/hbnb/internal/cli"

	// Storage backends register themselves by name.
	_ "github.com/roach88/hbnb/internal/storage/filestore"
	_ "github.com/roach88/hbnb/internal/storage/sqlstore"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
