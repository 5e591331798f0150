package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/workflow"
)

func main() {
	interval := flag.Duration("interval", 0, "Optional: rerun every interval (e.g. 1h). Runs once when unset.")
	flag.Parse()

	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, "ConcessionRefresh")
	ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	for {
		updated, err := workflow.RunConcessionRefresh(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "concession refresh failed: %v\n", err)
			if *interval == 0 {
				os.Exit(1)
			}
		} else {
			fmt.Printf("concession refresh done, %d rows updated\n", updated)
		}
		if *interval == 0 {
			return
		}
		time.Sleep(*interval)
	}
}
