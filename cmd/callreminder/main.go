package main

import "github.com/gilvegliach/CallReminder/internal/cli"

func main() {
	cli.Execute()
}
