// obdprobe is a one-shot UDP client for exercising the bridge from the
// command line: it sends a diagnostic command and prints the relayed reply,
// or reports silence when the bridge relayed nothing.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"
)

var (
	addr    = flag.String("addr", "127.0.0.1:8989", "Bridge UDP address")
	command = flag.String("command", "", "Command to send, e.g. \"01 0C\" (carriage return appended if missing)")
	wait    = flag.Duration("wait", 3*time.Second, "How long to wait for a reply")
)

func main() {
	flag.Parse()

	if *command == "" {
		fmt.Fprintln(os.Stderr, "usage: obdprobe -command \"01 0C\" [-addr host:port]")
		os.Exit(2)
	}

	raddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		log.Fatalf("resolve %s: %v", *addr, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	query := *command
	if !strings.HasSuffix(query, "\r") {
		query += "\r"
	}

	if _, err := conn.Write([]byte(query)); err != nil {
		log.Fatalf("send: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(*wait)); err != nil {
		log.Fatalf("set read deadline: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			fmt.Println("no reply (bridge relayed nothing for this command)")
			os.Exit(1)
		}
		log.Fatalf("receive: %v", err)
	}

	fmt.Printf("%s\n", buf[:n])
}
