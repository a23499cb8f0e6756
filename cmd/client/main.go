// Command client is a thin interactive terminal client for the ClassChat
// coordinator. It validates slash commands locally, so malformed commands
// never reach the wire.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/classchat/relay/internal/protocol"
)

const usage = `Commands:
  /private <username> <message>  - Send a private message
  /group <room_name> <message>   - Send a group message
  /create <room_name>            - Create a new chat room
  /join <room_name>              - Join an existing chat room
  /quit                          - Exit the chat`

func main() {
	addr := flag.String("addr", "127.0.0.1:5555", "coordinator address")
	name := flag.String("name", "", "username (prompted when empty)")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error connecting to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("Connected to server at %s\n", *addr)

	stdin := bufio.NewScanner(os.Stdin)

	identity := strings.TrimSpace(*name)
	for identity == "" {
		fmt.Print("Enter your username: ")
		if !stdin.Scan() {
			return
		}
		identity = strings.TrimSpace(stdin.Text())
	}

	// The first frame carries the bare identity.
	if err := protocol.WriteFrame(conn, []byte(identity), protocol.DefaultMaxPayload); err != nil {
		fmt.Fprintf(os.Stderr, "error sending username: %v\n", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go receiveLoop(conn, done)

	// Input runs on its own goroutine so a dropped connection exits the
	// client immediately instead of waiting for the next typed line.
	lines := make(chan string)
	go func() {
		defer close(lines)
		for stdin.Scan() {
			lines <- stdin.Text()
		}
	}()

	fmt.Println()
	fmt.Println(usage)
	fmt.Println()

	for {
		var line string
		select {
		case <-done:
			return
		case input, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(input)
		}
		if line == "" {
			continue
		}

		m, ok := parseCommand(line)
		if !ok {
			continue
		}
		if err := protocol.WriteMessage(conn, m, protocol.DefaultMaxPayload); err != nil {
			fmt.Println("Connection lost")
			return
		}
		if m.Kind == protocol.KindQuit {
			fmt.Println("Disconnecting...")
			return
		}
	}
}

// receiveLoop prints incoming frames until the stream closes.
func receiveLoop(conn net.Conn, done chan<- struct{}) {
	defer close(done)

	r := bufio.NewReader(conn)
	for {
		m, err := protocol.ReadMessage(r, protocol.DefaultMaxPayload)
		if err != nil {
			fmt.Println("\nDisconnected from server")
			return
		}
		display(m)
	}
}

func display(m protocol.Message) {
	switch m.Kind {
	case protocol.KindPrivate:
		fmt.Printf("\n[PRIVATE] %s: %s\n", m.Sender, m.Text)
	case protocol.KindGroup:
		fmt.Printf("\n[%s] %s: %s\n", m.Target, m.Sender, m.Text)
	case protocol.KindNotification:
		fmt.Printf("\n[%s] %s\n", m.Target, m.Text)
	case protocol.KindInfo:
		fmt.Printf("\n[INFO] %s\n", m.Text)
	case protocol.KindError:
		fmt.Printf("\n[ERROR] %s\n", m.Text)
	default:
		fmt.Printf("\n%s: %s\n", m.Sender, m.Text)
	}
}

// parseCommand turns one input line into a wire message, rejecting
// malformed commands locally.
func parseCommand(line string) (protocol.Message, bool) {
	if !strings.HasPrefix(line, "/") {
		fmt.Println("Unknown input. Type /quit to exit.")
		fmt.Println(usage)
		return protocol.Message{}, false
	}

	parts := strings.SplitN(line, " ", 3)
	switch parts[0] {
	case "/private":
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			fmt.Println("Usage: /private <username> <message>")
			return protocol.Message{}, false
		}
		return protocol.Message{Kind: protocol.KindPrivate, Target: parts[1], Text: parts[2]}, true

	case "/group":
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			fmt.Println("Usage: /group <room_name> <message>")
			return protocol.Message{}, false
		}
		return protocol.Message{Kind: protocol.KindGroup, Target: parts[1], Text: parts[2]}, true

	case "/create":
		if len(parts) != 2 || parts[1] == "" {
			fmt.Println("Usage: /create <room_name>")
			return protocol.Message{}, false
		}
		return protocol.Message{Kind: protocol.KindCreate, Target: parts[1]}, true

	case "/join":
		if len(parts) != 2 || parts[1] == "" {
			fmt.Println("Usage: /join <room_name>")
			return protocol.Message{}, false
		}
		return protocol.Message{Kind: protocol.KindJoin, Target: parts[1]}, true

	case "/quit":
		return protocol.Message{Kind: protocol.KindQuit}, true

	default:
		fmt.Printf("Unknown command: %s\n", parts[0])
		fmt.Println(usage)
		return protocol.Message{}, false
	}
}
