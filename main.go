package main

import (
	"github.com/gi4nks/promptchain/cmd/commands"
)

func main() {
	commands.Execute()
}
