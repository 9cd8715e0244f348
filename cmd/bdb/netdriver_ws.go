// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{} // use default options
var wsPath = "/uart"

func startWsServer(serverAddr string, br *uartBridge) {
	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, func(w http.ResponseWriter, r *http.Request) {
		serveWsClient(w, r, br)
	})

	log.Printf("Started UART WebSocket server at %s%s", serverAddr, wsPath)
	log.Fatal(http.ListenAndServe(serverAddr, mux))
}

type wsClientConn struct {
	conn *websocket.Conn
}

func (conn *wsClientConn) send(p []byte) error {
	return conn.conn.WriteMessage(websocket.BinaryMessage, p)
}

func serveWsClient(w http.ResponseWriter, r *http.Request, br *uartBridge) {
	log.Printf("New UART client connection from %s", r.RemoteAddr)
	conn, err := wsUpgrader.Upgrade(w, r, nil)

	if err != nil {
		log.Print("websocket upgrade error:", err)
		return
	}

	defer conn.Close()

	client := &wsClientConn{conn: conn}
	br.setClient(client)

	for {
		tp, msg, err := conn.ReadMessage()

		if err != nil {
			break
		}

		if tp != websocket.BinaryMessage && tp != websocket.TextMessage {
			continue
		}

		for _, b := range msg {
			br.in <- b
		}
	}

	br.dropClient(client)
	log.Printf("Closed UART client connection")
}
