package main

import "github.com/logreporter-dev/logreporter/pkg/cli"

func main() {
	cli.Execute()
}
