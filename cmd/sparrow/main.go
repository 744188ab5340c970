package main

import "github.com/jackerschott/sparrow/cmd/sparrow/cmd"

func main() {
	cmd.Execute()
}
