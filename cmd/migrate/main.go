package main

import (
	"fmt"
	"os"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	models.MigrateTable()
	fmt.Println("migration complete")
}
