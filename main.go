package main

import "github.com/notargets/gossm/cmd"

func main() {
	cmd.Execute()
}
