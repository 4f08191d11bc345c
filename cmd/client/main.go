package main

import "spratt/cmd/client/cmd"

func main() {
	cmd.Execute()
}
