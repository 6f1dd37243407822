package main

import "github.com/jake-scott/raki/cmd"

func main() {
	cmd.Execute()
}
