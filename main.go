package main

import "addinsso/cmd"

func main() {
	cmd.Execute()
}
