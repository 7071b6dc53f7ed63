// Command membershipctl administers a membership store: it creates indexes, checks backend health
// and manages accounts, roles and identifier sequences from the command line.
//
// Configuration comes from the environment (optionally a .env file):
//
//	MONGODB_URL                 connection URL, may carry the database name
//	MONGODB_DATABASE            database name override
//	MEMBERSHIP_APP_NAME         fallback database name
//	MEMBERSHIP_*_COLLECTION     collection names
//	SEQUENCE_BACKEND            mongo (default) or redis
//	REDIS_URL                   used when SEQUENCE_BACKEND=redis
//	APP_ENV, LOG_FORMAT         logging
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(connect).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
