package main

import (
	"os"

	"github.com/dmitrijs2005/voternet/internal/client/cli"
)

func main() {
	os.Exit(cli.Execute())
}
