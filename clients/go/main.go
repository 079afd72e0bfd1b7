// Command line client for the ngulikang chat service.
package main

import (
	"fmt"
	"os"

	"github.com/Bufv/NGULIKANG-FINAL/clients/go/chat"
	"github.com/Bufv/NGULIKANG-FINAL/internal/negotiation"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHAT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token := os.Getenv("CHAT_TOKEN")

	client := chat.NewClient(baseURL, token)
	cmd := os.Args[1]

	switch cmd {
	case "support":
		room, err := client.SupportRoom()
		exitOnError(err)
		fmt.Printf("Support room: %s (%s)\n", room.ID, room.Status)

	case "rooms":
		rooms, err := client.ListRooms()
		exitOnError(err)
		for _, r := range rooms {
			preview := ""
			if r.LastMessage != nil {
				preview = r.LastMessage.Content
			}
			fmt.Printf("  %s  %-11s %-6s  %s\n", r.ID, r.Kind, r.Status, preview)
		}

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chat read <room_id>")
			os.Exit(1)
		}
		msgs, err := client.RoomMessages(os.Args[2])
		exitOnError(err)
		for _, msg := range msgs {
			from := msg.SenderID[:8]
			if msg.Sender != nil && msg.Sender.Name != "" {
				from = msg.Sender.Name
			}
			body := msg.Content
			if c, ok := negotiation.DecodeControl(msg.Content); ok {
				body = fmt.Sprintf("[close request] %s", c.Text)
			}
			fmt.Printf("[%s] %s: %s\n", msg.SentAt.Format("2006-01-02 15:04:05"), from, body)
		}

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chat send <room_id> <message>")
			os.Exit(1)
		}
		msg, err := client.SendMessage(os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Sent: %s\n", msg.ID)

	case "close":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chat close <room_id>")
			os.Exit(1)
		}
		room, err := client.CloseRoom(os.Args[2])
		exitOnError(err)
		fmt.Printf("Room %s is now %s\n", room.ID, room.Status)

	case "workers":
		workers, err := client.Workers()
		exitOnError(err)
		for _, w := range workers {
			state := "available"
			if !w.Available {
				state = "busy"
			}
			fmt.Printf("  %s  %-20s %s\n", w.Worker.ID, w.Worker.Name, state)
		}

	case "negotiate":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: chat negotiate <worker_id> <project_type> <location>")
			os.Exit(1)
		}
		resp, err := client.StartNegotiation(chat.StartNegotiationRequest{
			WorkerID:    os.Args[2],
			ProjectType: os.Args[3],
			Location:    os.Args[4],
		})
		exitOnError(err)
		if resp.Reused {
			fmt.Printf("Resumed negotiation in room %s (order %s)\n", resp.Room.ID, resp.Order.ID)
		} else {
			fmt.Printf("Started negotiation in room %s (order %s)\n", resp.Room.ID, resp.Order.ID)
		}

	case "listen":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chat listen <room_id>")
			os.Exit(1)
		}
		listen(baseURL, token, os.Args[2])

	default:
		usage()
		os.Exit(1)
	}
}

// listen joins a room over the websocket and prints deliveries until
// the connection dies.
func listen(baseURL, token, roomID string) {
	sock, err := chat.Dial(baseURL, token)
	exitOnError(err)
	defer sock.Close()
	exitOnError(sock.Join(roomID))

	fmt.Printf("Listening on %s\n", roomID)
	for ev := range sock.Events {
		switch ev.Type {
		case "receive_message":
			from := ev.Message.SenderID
			if ev.Message.Sender != nil && ev.Message.Sender.Name != "" {
				from = ev.Message.Sender.Name
			}
			fmt.Printf("[%s] %s: %s\n", ev.Message.SentAt.Format("15:04:05"), from, ev.Message.Content)
		case "error":
			fmt.Fprintf(os.Stderr, "server error: %s\n", ev.Error)
		}
	}
	fmt.Println("Connection closed")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: chat <command> [args]

Commands:
  support                              Get or create your support room
  rooms                                List your rooms
  read <room_id>                       Print a room's timeline
  send <room_id> <message>             Send a message
  listen <room_id>                     Stream live deliveries
  close <room_id>                      Close a room
  workers                              List workers and availability
  negotiate <worker_id> <type> <loc>   Start a negotiation

Environment:
  CHAT_URL    Server base URL (default http://localhost:8080)
  CHAT_TOKEN  Bearer token (see cmd/mktoken)`)
}
