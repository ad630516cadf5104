package main

import (
	"context"
)

// migrate runs `args[0]` as a goose command with the remaining args.
func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(context.Background(), cli.db, args[0], args[1:]...)
}
