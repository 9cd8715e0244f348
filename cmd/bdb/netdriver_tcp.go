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
	"bufio"
	"log"
	"net"
	"sync"

	"github.com/lassandro/gobric/pkg/debugger"
)

type uartClient interface {
	send(p []byte) error
}

// uartBridge carries bytes between the UART FIFOs and one external client.
// Client goroutines only touch the channel and the client slot; the FIFOs
// themselves are fed on the REPL goroutine between machine steps.
type uartBridge struct {
	in     chan byte
	mu     sync.Mutex
	client uartClient
}

func newUartBridge() *uartBridge {
	return &uartBridge{in: make(chan byte, 4096)}
}

func (br *uartBridge) setClient(c uartClient) {
	br.mu.Lock()
	br.client = c
	br.mu.Unlock()
}

func (br *uartBridge) dropClient(c uartClient) {
	br.mu.Lock()
	if br.client == c {
		br.client = nil
	}
	br.mu.Unlock()
}

// pump drains queued client bytes into the UART input FIFO.
func (br *uartBridge) pump(dbg *debugger.Debugger) {
	for {
		select {
		case b := <-br.in:
			dbg.FeedUart([]byte{b})
		default:
			return
		}
	}
}

// send forwards UART output to the connected client, if any. A write error
// is left for the client's read loop to notice.
func (br *uartBridge) send(p []byte) {
	br.mu.Lock()
	client := br.client
	br.mu.Unlock()

	if client != nil {
		_ = client.send(p)
	}
}

type tcpClientConn struct {
	conn net.Conn
}

func (conn *tcpClientConn) send(p []byte) error {
	_, err := conn.conn.Write(p)
	return err
}

func startTcpServer(serverAddr string, br *uartBridge) {
	listener, err := net.Listen("tcp", serverAddr)

	if err != nil {
		log.Fatalf("Failed to listen to connection -- %v", err)
	}

	log.Printf("Started UART TCP server at %s", serverAddr)

	for {
		conn, err := listener.Accept()

		if err != nil {
			log.Printf("Failed to accept connection -- %v", err)
			continue
		}

		log.Printf("New UART client connection from %s", conn.RemoteAddr())
		go serveTcpClient(conn, br)
	}
}

func serveTcpClient(conn net.Conn, br *uartBridge) {
	client := &tcpClientConn{conn: conn}
	br.setClient(client)

	reader := bufio.NewReader(conn)

	for {
		b, err := reader.ReadByte()

		if err != nil {
			break
		}

		br.in <- b
	}

	br.dropClient(client)
	conn.Close()
	log.Printf("Closed UART client connection")
}
