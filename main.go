package main

import "networked/cmd"

func main() {
	cmd.Execute()
}
