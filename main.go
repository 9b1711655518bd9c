package main

import "github.com/mukundsahu017-ux/AuroraBridge/cmd"

func main() {
	cmd.Execute()
}
