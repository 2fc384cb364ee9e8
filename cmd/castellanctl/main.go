package main

import (
	"github.com/jwren/castellan/internal/cli"
)

func main() {
	cli.Execute()
}
