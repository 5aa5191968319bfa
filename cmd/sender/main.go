package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/andy6609/room-chat-server/internal/chat"
	"github.com/andy6609/room-chat-server/internal/client"
)

const dialTimeout = 10 * time.Second

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "Usage: sender <server_address> <port> <username>")
		os.Exit(1)
	}
	host, username := os.Args[1], os.Args[3]
	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid port %q\n", os.Args[2])
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	conn, err := chat.Dial(ctx, host, port)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to server: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := client.RunSender(conn, username, os.Stdin, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		conn.Close()
		os.Exit(1)
	}
}
