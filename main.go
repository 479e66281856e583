package main

import "github.com/KaramelBytes/datahub-cli/cmd"

func main() {
	cmd.Execute()
}
