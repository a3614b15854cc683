package main

import "github.com/vinitparekh17/ActoEngine-sub006/cmd"

func main() {
	cmd.Execute()
}
