package main

import "github.com/mvp-joe/dtsroll/internal/cli"

func main() {
	cli.Execute()
}
