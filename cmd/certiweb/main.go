package main

import "github.com/certiweb/go-auth/cmd/certiweb/cmd"

func main() {
	cmd.Execute()
}
