package main

import (
	"os"

	"github.com/kislikjeka/caseledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
