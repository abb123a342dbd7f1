package main

import (
	"os"

	"github.com/sandeepkv93/taskngo/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
