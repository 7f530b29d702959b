// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-18

// Package main is the entry point for the jira-sync service.
package main

import (
	"os"

	"github.com/similigh/jira-sync/cmd/jira-sync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
