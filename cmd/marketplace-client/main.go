// Command marketplace-client is an interactive terminal client for the
// marketplace server.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"example/marketplace/internal/cli"
	"example/marketplace/internal/config"
	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"

	"github.com/gorilla/websocket"
)

func main() {
	logger.InitLoggerDev()
	defer logger.Sync()

	cfg := config.Load()
	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, nil)
	if err != nil {
		logger.Log.Fatalw("Failed connecting to Marketplace", "url", cfg.WSURL, "error", err)
	}
	defer conn.Close()
	fmt.Println("Client connected to Marketplace")

	go readLoop(conn)

	in := bufio.NewScanner(os.Stdin)
	seq := 0
	for {
		fmt.Print("Marketplace> ")
		if !in.Scan() {
			return
		}
		cmd, err := cli.Parse(in.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}
		switch cmd.Name {
		case "quit":
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case "help":
			fmt.Println(cli.Help())
			continue
		}

		seq++
		msg, ok := cmd.Request(strconv.Itoa(seq))
		if !ok {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			logger.Log.Errorw("Write error", "error", err)
			return
		}
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		var env models.WSEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
				logger.Log.Warnw("Connection lost", "error", err)
			}
			os.Exit(0)
		}
		if env.Event != "" && env.Notification != nil {
			fmt.Println("\n" + cli.FormatNotification(*env.Notification))
			continue
		}
		fmt.Println(cli.FormatResponse(env.WSResponse))
	}
}
