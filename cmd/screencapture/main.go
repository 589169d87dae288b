package main

import "github.com/bryanchriswhite/ScreenCaptureTool/cmd/screencapture/commands"

func main() {
	commands.Execute()
}
