package main

import "github.com/JeremyAll/ai-code-generator-v2-sub002/cmd"

func main() {
	cmd.Execute()
}
