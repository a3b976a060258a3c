package main

import "epictech-chat/cmd"

func main() {
	cmd.Execute()
}
