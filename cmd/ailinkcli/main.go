package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var serverAddr = flag.String("server", "localhost:8080", "ailinkd API address")

func main() {
	flag.Parse()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	client := NewClient(*serverAddr)

	if _, err := client.Status(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *serverAddr, err)
		fmt.Fprintf(os.Stderr, "Make sure ailinkd is running\n")
		os.Exit(1)
	}

	cli := NewCLI(client, *serverAddr)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
