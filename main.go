package main

import "github.com/qobs-build/sm/cmd"

func main() {
	cmd.Execute()
}
