package main

import "yampd/cmd"

func main() {
	cmd.Execute()
}
