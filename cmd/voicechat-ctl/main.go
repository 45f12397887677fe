package main

import (
	"fmt"
	"os"

	"github.com/Kewton/voice-chat-app/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: voicechat-ctl <stats|shutdown>")
		os.Exit(2)
	}

	resp, err := ipc.Send(os.Args[1])
	if err != nil {
		fmt.Println("voicechatd not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Println("error:", resp.Error)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		fmt.Printf("connected clients: %d\n", resp.Clients)
	default:
		fmt.Println("ok")
	}
}
