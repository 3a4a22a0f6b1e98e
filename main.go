package main

import "github.com/dirblast/dirblast/cmd"

func main() {
	cmd.Execute()
}
