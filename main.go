package main

import "license-reconciler/cmd"

func main() {
	cmd.Execute()
}
