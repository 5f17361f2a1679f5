package main

import (
	"os"

	"github.com/yungbote/library-backend/cmd/libraryctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
