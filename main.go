package main

import "github.com/tanq16/humble-cli/cmd"

func main() {
	cmd.Execute()
}
