package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tool "github.com/sandeepkv93/admin-listing-engine/internal/tools/listingctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := tool.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
