package main

import "github.com/venkatbhat62/JaaduConfig/cmd"

func main() {
	cmd.Execute()
}
