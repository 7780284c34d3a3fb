package main

import "github.com/yeremiapane/restqr/commands"

func main() {
	commands.Execute()
}
