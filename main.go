package main

import "github.com/fakeyudi/stint/cmd"

func main() {
	cmd.Execute()
}
