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
	if len(os.Args) != 5 {
		fmt.Fprintln(os.Stderr, "Usage: receiver <server_address> <port> <username> <room>")
		os.Exit(1)
	}
	host, username, room := os.Args[1], os.Args[3], os.Args[4]
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

	if err := client.RunReceiver(conn, username, room, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		conn.Close()
		os.Exit(1)
	}
}
