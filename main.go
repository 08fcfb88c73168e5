package main

import "github.com/ncopendata/opibase/cmd"

func main() {
	cmd.Execute()
}
