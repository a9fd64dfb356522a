package main

import "github.com/mj1618/guidepilot/cmd"

func main() {
	cmd.Execute()
}
