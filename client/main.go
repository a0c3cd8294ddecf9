package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHello        = 2
	MsgTypeCreateRoom   = 101
	MsgTypeJoinRoom     = 102
	MsgTypeClaimStation = 111
	MsgTypeSetReady     = 112
	MsgTypeStartRound   = 121
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return send(c, msgID, data)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	log.Println("Sending hello...")
	if err := send(c, MsgTypeHello, []byte{}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Commands: create <stations> <seconds> | join <code> | claim <id> | ready | start | quit")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "create":
				stations, seconds := 2, 120
				if len(fields) > 1 {
					stations, _ = strconv.Atoi(fields[1])
				}
				if len(fields) > 2 {
					seconds, _ = strconv.Atoi(fields[2])
				}
				err = sendJSON(c, MsgTypeCreateRoom, map[string]int{
					"stations_count":     stations,
					"round_duration_sec": seconds,
				})
			case "join":
				if len(fields) < 2 {
					log.Println("usage: join <code>")
					continue
				}
				err = sendJSON(c, MsgTypeJoinRoom, map[string]string{"code": strings.ToUpper(fields[1])})
			case "claim":
				if len(fields) < 2 {
					log.Println("usage: claim <id>")
					continue
				}
				id, _ := strconv.Atoi(fields[1])
				err = sendJSON(c, MsgTypeClaimStation, map[string]int{"station_id": id})
			case "ready":
				err = sendJSON(c, MsgTypeSetReady, map[string]bool{"ready": true})
			case "start":
				err = send(c, MsgTypeStartRound, []byte{})
			case "quit":
				return
			default:
				log.Printf("Unknown command %q", fields[0])
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
