package main

import "github.com/nkoval/sysward/internal/cli"

func main() {
	cli.Execute()
}
