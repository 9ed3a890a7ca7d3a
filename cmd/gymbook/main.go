package main

import "github.com/example/gymbook/cmd"

func main() {
	cmd.Execute()
}
