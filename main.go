package main

import "github.com/genetrans/genetrans/cmd"

func main() {
	cmd.Execute()
}
