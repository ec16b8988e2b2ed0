package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/satriahrh/rolecall/domain"
)

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	roleID := flag.Int64("role", 1, "role id to talk to")
	text := flag.String("text", "", "text turn to send")
	audioFile := flag.String("audio", "", "audio file to send as chunks")
	chunkSize := flag.Int("chunk-size", 16*1024, "audio chunk size in bytes")
	backend := flag.String("backend", "", "language model backend for text turns")
	token := flag.String("token", "", "client token, when the server requires one")
	timeout := flag.Duration("timeout", 2*time.Minute, "how long to wait for the reply")
	flag.Parse()

	if *text == "" && *audioFile == "" {
		*text = "Hello, who are you?"
	}

	wsURL, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Invalid url: %v", err)
	}

	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	}

	fmt.Printf("Connecting to: %s\n", wsURL.String())
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), header)
	if err != nil {
		if resp != nil {
			log.Fatalf("WebSocket connection failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("WebSocket connection failed: %v", err)
	}
	defer conn.Close()

	fmt.Println("✓ WebSocket connection successful!")

	send := func(msg map[string]interface{}) {
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("Failed to send %v: %v", msg["type"], err)
		}
	}

	send(map[string]interface{}{"type": "config", "roleId": *roleID})

	if *audioFile != "" {
		data, err := os.ReadFile(*audioFile)
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		send(map[string]interface{}{"type": "start"})
		chunks := 0
		for offset := 0; offset < len(data); offset += *chunkSize {
			end := min(offset+*chunkSize, len(data))
			send(map[string]interface{}{
				"type":  "audio-chunk",
				"chunk": base64.StdEncoding.EncodeToString(data[offset:end]),
			})
			chunks++
		}
		send(map[string]interface{}{"type": "stop"})
		fmt.Printf("Sent %d bytes in %d chunks\n", len(data), chunks)
	} else {
		msg := map[string]interface{}{"type": "text", "text": *text}
		if *backend != "" {
			msg["backend"] = *backend
		}
		send(msg)
	}

	conn.SetReadDeadline(time.Now().Add(*timeout))
	for {
		var event domain.Event
		if err := conn.ReadJSON(&event); err != nil {
			log.Fatalf("Failed to read event: %v", err)
		}

		switch event.Type {
		case domain.EventReplyAudio:
			audio, _ := base64.StdEncoding.DecodeString(event.Audio)
			fmt.Printf("← %s (%d bytes)\n", event.Type, len(audio))
			return
		case domain.EventError:
			fmt.Printf("← %s: %s\n", event.Type, event.Msg)
			os.Exit(1)
		case domain.EventInfo:
			fmt.Printf("← %s: %s\n", event.Type, event.Msg)
		default:
			fmt.Printf("← %s: %s\n", event.Type, event.Text)
		}
	}
}
