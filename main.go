package main

import "github.com/darmiel/paytrust/cmd"

func main() {
	cmd.Execute()
}
