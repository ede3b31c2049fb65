package main

import "github.com/xvierd/branchbar/cmd"

func main() {
	cmd.Execute()
}
