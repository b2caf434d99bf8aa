package main

import "github.com/juststeveking/sentinel/cmd"

func main() {
	cmd.Execute()
}
