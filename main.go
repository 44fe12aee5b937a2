package main

import "github.com/kiesman99/tilewall/cmd"

func main() {
	cmd.Execute()
}
